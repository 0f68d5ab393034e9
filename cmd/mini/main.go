// Command mini is the mini language CLI entry point.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"fortio.org/log"

	"github.com/thomasrohde/mini/pkg/config"
	"github.com/thomasrohde/mini/pkg/diagnostics"
	"github.com/thomasrohde/mini/pkg/evaluator"
	"github.com/thomasrohde/mini/pkg/formatter"
	"github.com/thomasrohde/mini/pkg/help"
	"github.com/thomasrohde/mini/pkg/runtime"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: mini <command> [options]")
		fmt.Fprintln(os.Stderr, "commands: run, check, fmt, repl, trace, help, config")
		os.Exit(1)
	}

	cmd := os.Args[1]
	switch cmd {
	case "run":
		os.Exit(cmdRun(os.Args[2:]))
	case "check":
		os.Exit(cmdCheck(os.Args[2:]))
	case "fmt":
		os.Exit(cmdFmt(os.Args[2:]))
	case "repl":
		os.Exit(cmdRepl(os.Args[2:]))
	case "trace":
		os.Exit(cmdTrace(os.Args[2:]))
	case "help", "--help", "-h":
		os.Exit(cmdHelp(os.Args[2:]))
	case "config":
		os.Exit(cmdConfig(os.Args[2:]))
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		os.Exit(1)
	}
}

// commonFlags are accepted by every command that runs or checks code.
type commonFlags struct {
	file       string
	pretty     bool
	verbose    bool
	configPath string
}

// parseCommon consumes the shared flags and returns the arguments it did
// not recognize, in order.
func parseCommon(args []string) (commonFlags, []string) {
	var cf commonFlags
	var rest []string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--pretty":
			cf.pretty = true
		case "-v", "--verbose":
			cf.verbose = true
		case "--config":
			if i+1 < len(args) {
				i++
				cf.configPath = args[i]
			}
		case "--trace":
			// Command-specific flag with a value; keep the pair together.
			rest = append(rest, args[i])
			if i+1 < len(args) {
				i++
				rest = append(rest, args[i])
			}
		default:
			if cf.file == "" && (args[i] == "-" || !strings.HasPrefix(args[i], "-")) {
				cf.file = args[i]
			} else {
				rest = append(rest, args[i])
			}
		}
	}
	return cf, rest
}

// setup loads configuration and applies the log level. A non-zero exit code
// means a diagnostic has already been reported.
func setup(cf *commonFlags) (*config.Config, int) {
	var (
		cfg *config.Config
		err error
	)
	if cf.configPath != "" {
		cfg, err = config.Load(cf.configPath)
	} else {
		cwd, _ := os.Getwd()
		cfg, err = config.Discover(cwd)
	}
	if err != nil {
		reportDiag(diagnostics.MakeDiag(diagnostics.EConfig, err.Error(), nil, ""), cf.pretty)
		return nil, 1
	}
	if err := cfg.ApplyLogLevel(); err != nil {
		reportDiag(diagnostics.MakeDiag(diagnostics.EConfig, err.Error(), nil, ""), cf.pretty)
		return nil, 1
	}
	if cf.verbose {
		log.SetLogLevel(log.Verbose)
	}
	cf.pretty = cf.pretty || cfg.Output.Pretty
	return cfg, 0
}

func cmdRun(args []string) int {
	cf, rest := parseCommon(args)
	jsonOutput := false
	tracePath := ""

	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case "--json":
			jsonOutput = true
		case "--trace":
			if i+1 < len(rest) {
				i++
				tracePath = rest[i]
			}
		}
	}

	if cf.file == "" {
		fmt.Fprintln(os.Stderr, "usage: mini run <file|-> [--pretty] [--json] [--trace <path>] [--config <path>] [-v]")
		return 1
	}

	cfg, exitCode := setup(&cf)
	if exitCode != 0 {
		return exitCode
	}

	source, filename, exitCode := readSource(cf.file, cf.pretty)
	if exitCode != 0 {
		return exitCode
	}

	opts := []runtime.Option{
		runtime.WithStdout(os.Stdout),
		runtime.WithConfig(cfg),
		runtime.WithRunID(fmt.Sprintf("run-%d", time.Now().UnixNano())),
	}
	if tracePath != "" {
		tw, err := newTraceWriter(tracePath)
		if err != nil {
			reportDiag(diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot open trace file: %s", tracePath), nil, ""), cf.pretty)
			return 1
		}
		defer tw.Close()
		opts = append(opts, runtime.WithTrace(tw.Write))
	}

	rt := runtime.New(opts...)
	result, execErr := rt.Run(source, filename)
	if execErr != nil {
		return reportError(execErr, cf.pretty)
	}

	if jsonOutput && result != nil {
		jsonBytes, err := evaluator.ValueToJSON(result.Value)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error serializing result: %s\n", err)
			return 4
		}
		fmt.Println(string(jsonBytes))
	}
	return 0
}

func cmdCheck(args []string) int {
	cf, _ := parseCommon(args)
	if cf.file == "" {
		fmt.Fprintln(os.Stderr, "usage: mini check <file> [--pretty]")
		return 1
	}
	if _, exitCode := setup(&cf); exitCode != 0 {
		return exitCode
	}

	source, filename, exitCode := readSource(cf.file, cf.pretty)
	if exitCode != 0 {
		return exitCode
	}

	rt := runtime.New()
	diags := rt.Check(source, filename)
	if len(diags) > 0 {
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics(diags, cf.pretty))
		return checkExitCode(diags)
	}

	if cf.pretty {
		fmt.Println("No errors found.")
	} else {
		fmt.Println("[]")
	}
	return 0
}

func cmdFmt(args []string) int {
	var file string
	write := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--write":
			write = true
		default:
			if !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: mini fmt <file> [--write]")
		return 1
	}

	source, filename, exitCode := readSource(file, false)
	if exitCode != 0 {
		return exitCode
	}

	rt := runtime.New()
	formatted, fmtErr := rt.Format(source, filename)
	if fmtErr != nil {
		return reportError(fmtErr, false)
	}

	if formatter.HasComments(source) {
		log.Warnf("comments are not preserved by the formatter")
	}

	if write {
		if err := os.WriteFile(file, []byte(formatted), 0o644); err != nil {
			reportDiag(diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot write file: %s", file), nil, ""), false)
			return 1
		}
		return 0
	}
	fmt.Print(formatted)
	return 0
}

func cmdHelp(args []string) int {
	topic := ""
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") {
			topic = arg
		}
	}

	if topic == "" {
		fmt.Print(help.QUICKREF)
		return 0
	}

	_, content, err := help.MatchTopic(topic)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Print(content)
	return 0
}

func cmdConfig(args []string) int {
	cf, _ := parseCommon(args)
	cfg, exitCode := setup(&cf)
	if exitCode != 0 {
		return exitCode
	}

	out, err := cfg.Marshal()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error serializing config: %s\n", err)
		return 1
	}
	if cfg.Path != "" {
		fmt.Printf("# loaded from %s\n", cfg.Path)
	} else {
		fmt.Println("# defaults (no config file found)")
	}
	fmt.Print(string(out))
	return 0
}

func readSource(file string, pretty bool) (string, string, int) {
	if file == "-" {
		data, err := io.ReadAll(bufio.NewReader(os.Stdin))
		if err != nil {
			reportDiag(diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot read stdin: %s", err), nil, ""), pretty)
			return "", "", 1
		}
		return string(data), "<stdin>", 0
	}

	source, err := os.ReadFile(file)
	if err != nil {
		reportDiag(diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot read file: %s", file), nil, ""), pretty)
		return "", "", 1
	}
	return string(source), file, 0
}

func reportDiag(d diagnostics.Diagnostic, pretty bool) {
	fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics([]diagnostics.Diagnostic{d}, pretty))
}

// reportError prints the diagnostic carried by err and returns the exit code.
func reportError(err error, pretty bool) int {
	d, ok := runtime.DiagnosticOf(err)
	if !ok {
		fmt.Fprintln(os.Stderr, err.Error())
		return 4
	}
	reportDiag(d, pretty)
	return exitCodeForDiag(d.Code)
}

func exitCodeForDiag(code string) int {
	switch {
	case code == diagnostics.ELex || code == diagnostics.EParse:
		return 2
	case diagnostics.IsRuntime(code):
		return 4
	default:
		return 1
	}
}

// checkExitCode is 2 when any diagnostic is an error and 0 when all of them
// are warnings.
func checkExitCode(diags []diagnostics.Diagnostic) int {
	for _, d := range diags {
		if !diagnostics.IsWarning(d.Code) {
			return 2
		}
	}
	return 0
}
