package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fortio.org/log"

	"github.com/thomasrohde/mini/pkg/diagnostics"
	"github.com/thomasrohde/mini/pkg/evaluator"
	"github.com/thomasrohde/mini/pkg/parser"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Limits.MaxCallDepth != evaluator.DefaultMaxCallDepth {
		t.Errorf("max_call_depth = %d", cfg.Limits.MaxCallDepth)
	}
	if cfg.Limits.MaxIterations != 0 {
		t.Errorf("max_iterations = %d, want unlimited", cfg.Limits.MaxIterations)
	}
	if cfg.Prompt() != DefaultPrompt {
		t.Errorf("prompt = %q", cfg.Prompt())
	}
	if cfg.Path != "" {
		t.Errorf("path = %q, want empty", cfg.Path)
	}
}

func TestDecode_Full(t *testing.T) {
	src := `
limits:
  max_call_depth: 64
  max_iterations: 5000
output:
  pretty: true
log_level: verbose
repl:
  history_file: /tmp/mini-history
  prompt: "> "
`
	cfg, err := Decode(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := evaluator.Limits{MaxCallDepth: 64, MaxIterations: 5000}
	if got := cfg.ExecLimits(); got != want {
		t.Errorf("limits = %+v, want %+v", got, want)
	}
	if !cfg.Output.Pretty {
		t.Error("pretty should be true")
	}
	if cfg.HistoryPath() != "/tmp/mini-history" {
		t.Errorf("history = %q", cfg.HistoryPath())
	}
	if cfg.Prompt() != "> " {
		t.Errorf("prompt = %q", cfg.Prompt())
	}
}

func TestDecode_PartialKeepsDefaults(t *testing.T) {
	cfg, err := Decode(strings.NewReader("output:\n  pretty: true\n"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if cfg.Limits.MaxCallDepth != evaluator.DefaultMaxCallDepth {
		t.Errorf("max_call_depth = %d, want default", cfg.Limits.MaxCallDepth)
	}
	if cfg.Prompt() != DefaultPrompt {
		t.Errorf("prompt = %q", cfg.Prompt())
	}
}

func TestDecode_Empty(t *testing.T) {
	cfg, err := Decode(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("log_level = %q", cfg.LogLevel)
	}
}

func TestDecode_UnknownKey(t *testing.T) {
	_, err := Decode(strings.NewReader("limits:\n  max_depth: 3\n"))
	if err == nil {
		t.Fatal("expected error for unknown key")
	}
	if !strings.Contains(err.Error(), "max_depth") {
		t.Errorf("error = %v, want it to name the key", err)
	}
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode(strings.NewReader("limits:\n  max_call_depth: -1\nlog_level: loud\n"))
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected *ValidationError, got %T: %v", err, err)
	}
	if len(vErr.Issues) != 2 {
		t.Errorf("issues = %v, want 2", vErr.Issues)
	}
}

func TestDecode_CallDepthCeiling(t *testing.T) {
	tests := []struct {
		depth   string
		wantErr bool
	}{
		{"0", false},
		{"100000", false},
		{"100001", true},
		{"100000000", true},
	}
	for _, tt := range tests {
		t.Run(tt.depth, func(t *testing.T) {
			_, err := Decode(strings.NewReader("limits:\n  max_call_depth: " + tt.depth + "\n"))
			var vErr *ValidationError
			if got := errors.As(err, &vErr); got != tt.wantErr {
				t.Fatalf("validation error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr && !strings.Contains(vErr.Error(), "max_call_depth") {
				t.Errorf("error %q should name max_call_depth", vErr.Error())
			}
		})
	}
}

func TestExecLimits_DeepRecursionEndsInBudget(t *testing.T) {
	cfg := Default()
	cfg.Limits.MaxCallDepth = 100000000
	prog, err := parser.Parse("func down(n) { return down(n + 1) }\ndown(0)", "deep.mini")
	if err != nil {
		t.Fatal(err)
	}
	_, err = evaluator.Execute(prog, nil, evaluator.ExecOptions{Limits: cfg.ExecLimits()})
	var rtErr *evaluator.RuntimeError
	if !errors.As(err, &rtErr) || rtErr.Code != diagnostics.EBudget {
		t.Fatalf("expected E_BUDGET, got %v", err)
	}
}

func TestLoad_SetsPath(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "cfg.yaml", "log_level: debug\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Path != path {
		t.Errorf("path = %q, want %q", cfg.Path, path)
	}
}

func TestLoad_ValidationErrorNamesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "cfg.yaml", "limits:\n  max_iterations: -5\n")
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), path) {
		t.Fatalf("error = %v, want it to name %s", err, path)
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, want not-exist", err)
	}
}

func TestDiscover_Project(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	writeFile(t, home, ".mini/config.yaml", "log_level: error\n")

	project := t.TempDir()
	writeFile(t, project, ProjectFile, "log_level: warning\n")

	cfg, err := Discover(project)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if cfg.LogLevel != "warning" {
		t.Errorf("log_level = %q, want the project value", cfg.LogLevel)
	}
}

func TestDiscover_UserFallback(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	writeFile(t, home, ".mini/config.yaml", "log_level: error\n")

	cfg, err := Discover(t.TempDir())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if cfg.LogLevel != "error" {
		t.Errorf("log_level = %q, want the user value", cfg.LogLevel)
	}
}

func TestDiscover_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := Discover(t.TempDir())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if cfg.Path != "" {
		t.Errorf("path = %q, want defaults", cfg.Path)
	}
}

func TestDiscover_BrokenProjectFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	project := t.TempDir()
	writeFile(t, project, ProjectFile, "limits: [1, 2]\n")
	if _, err := Discover(project); err == nil {
		t.Fatal("expected error for malformed project config")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		name string
		want log.Level
		ok   bool
	}{
		{"debug", log.Debug, true},
		{"Verbose", log.Verbose, true},
		{"", log.Info, true},
		{"info", log.Info, true},
		{"warn", log.Warning, true},
		{"error", log.Error, true},
		{"chatty", log.Info, false},
	}
	for _, tt := range tests {
		got, err := ParseLogLevel(tt.name)
		if (err == nil) != tt.ok {
			t.Errorf("ParseLogLevel(%q) error = %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestMarshal(t *testing.T) {
	out, err := Default().Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	s := string(out)
	for _, want := range []string{"max_call_depth: 1000", "log_level: info", "prompt:"} {
		if !strings.Contains(s, want) {
			t.Errorf("marshal output missing %q:\n%s", want, s)
		}
	}
	if strings.Contains(s, "path") {
		t.Errorf("marshal output should not include path:\n%s", s)
	}
}
