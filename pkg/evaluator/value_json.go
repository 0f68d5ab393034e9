package evaluator

import (
	"encoding/json"
	"math"
)

// ValueToJSON marshals a Value to JSON bytes. Ints stay integers, floats
// that cannot be represented in JSON (inf, nan) become strings, functions
// become {"func": name, "params": [...]}, and None becomes null.
func ValueToJSON(v Value) ([]byte, error) {
	return json.Marshal(valueToRaw(v))
}

func valueToRaw(v Value) any {
	switch val := v.(type) {
	case nil, None:
		return nil
	case Int:
		return val.Value
	case Float:
		if math.IsInf(val.Value, 0) || math.IsNaN(val.Value) {
			return formatFloat(val.Value)
		}
		return val.Value
	case Str:
		return val.Value
	case Bool:
		return val.Value
	case *Function:
		params := val.Decl.Params
		if params == nil {
			params = []string{}
		}
		return map[string]any{"func": val.Name(), "params": params}
	}
	return nil
}
