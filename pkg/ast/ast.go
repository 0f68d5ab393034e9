// Package ast defines the mini language AST node types.
package ast

// Span represents a source location range.
type Span struct {
	File      string `json:"file"`
	StartLine int    `json:"startLine"`
	StartCol  int    `json:"startCol"`
	EndLine   int    `json:"endLine"`
	EndCol    int    `json:"endCol"`
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Kind() string
	NodeSpan() Span
}

// Operator represents a binary operator.
type Operator string

const (
	OpAdd  Operator = "+"
	OpSub  Operator = "-"
	OpMul  Operator = "*"
	OpDiv  Operator = "/"
	OpGt   Operator = ">"
	OpLt   Operator = "<"
	OpGtEq Operator = ">="
	OpLtEq Operator = "<="
	OpEqEq Operator = "=="
	OpNeq  Operator = "!="
)

// IsComparison reports whether op yields a boolean.
func (op Operator) IsComparison() bool {
	switch op {
	case OpGt, OpLt, OpGtEq, OpLtEq, OpEqEq, OpNeq:
		return true
	}
	return false
}

// --- Expr is the interface for all expression nodes ---

type Expr interface {
	Node
	exprNode() // sealed marker
}

// --- Stmt is the interface for all statement nodes ---

type Stmt interface {
	Node
	stmtNode() // sealed marker
}

// --- Literal Expressions ---

// NumberLiteral holds an integer or a float, depending on IsFloat.
type NumberLiteral struct {
	Span    Span
	IsFloat bool
	Int     int64
	Float   float64
}

func (n *NumberLiteral) Kind() string   { return "NumberLiteral" }
func (n *NumberLiteral) NodeSpan() Span { return n.Span }
func (n *NumberLiteral) exprNode()      {}

type StringLiteral struct {
	Span  Span
	Value string
}

func (n *StringLiteral) Kind() string   { return "StringLiteral" }
func (n *StringLiteral) NodeSpan() Span { return n.Span }
func (n *StringLiteral) exprNode()      {}

// --- Variables & Calls ---

type VarAccess struct {
	Span Span
	Name string
}

func (n *VarAccess) Kind() string   { return "VarAccess" }
func (n *VarAccess) NodeSpan() Span { return n.Span }
func (n *VarAccess) exprNode()      {}

type FuncCall struct {
	Span Span
	Name string
	Args []Expr
}

func (n *FuncCall) Kind() string   { return "FuncCall" }
func (n *FuncCall) NodeSpan() Span { return n.Span }
func (n *FuncCall) exprNode()      {}

// --- Operators ---

type BinaryOp struct {
	Span  Span
	Op    Operator
	Left  Expr
	Right Expr
}

func (n *BinaryOp) Kind() string   { return "BinaryOp" }
func (n *BinaryOp) NodeSpan() Span { return n.Span }
func (n *BinaryOp) exprNode()      {}

// UnaryOp is prefix negation; '-' is the only unary operator.
type UnaryOp struct {
	Span    Span
	Operand Expr
}

func (n *UnaryOp) Kind() string   { return "UnaryOp" }
func (n *UnaryOp) NodeSpan() Span { return n.Span }
func (n *UnaryOp) exprNode()      {}

// --- Statements ---

type VarAssign struct {
	Span  Span
	Name  string
	Value Expr
}

func (n *VarAssign) Kind() string   { return "VarAssign" }
func (n *VarAssign) NodeSpan() Span { return n.Span }
func (n *VarAssign) stmtNode()      {}

type FuncDef struct {
	Span   Span
	Name   string
	Params []string
	Body   []Stmt
}

func (n *FuncDef) Kind() string   { return "FuncDef" }
func (n *FuncDef) NodeSpan() Span { return n.Span }
func (n *FuncDef) stmtNode()      {}

// If executes Then when Cond is truthy, otherwise Else.
// Else is nil when the source has no else branch.
type If struct {
	Span Span
	Cond Expr
	Then []Stmt
	Else []Stmt
}

func (n *If) Kind() string   { return "If" }
func (n *If) NodeSpan() Span { return n.Span }
func (n *If) stmtNode()      {}

type While struct {
	Span Span
	Cond Expr
	Body []Stmt
}

func (n *While) Kind() string   { return "While" }
func (n *While) NodeSpan() Span { return n.Span }
func (n *While) stmtNode()      {}

type Return struct {
	Span  Span
	Value Expr
}

func (n *Return) Kind() string   { return "Return" }
func (n *Return) NodeSpan() Span { return n.Span }
func (n *Return) stmtNode()      {}

type Print struct {
	Span  Span
	Value Expr
}

func (n *Print) Kind() string   { return "Print" }
func (n *Print) NodeSpan() Span { return n.Span }
func (n *Print) stmtNode()      {}

type ExprStmt struct {
	Span Span
	Expr Expr
}

func (n *ExprStmt) Kind() string   { return "ExprStmt" }
func (n *ExprStmt) NodeSpan() Span { return n.Span }
func (n *ExprStmt) stmtNode()      {}

// --- Program ---

type Program struct {
	Span       Span
	Statements []Stmt
}

func (n *Program) Kind() string   { return "Program" }
func (n *Program) NodeSpan() Span { return n.Span }
