package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/funvibe/loxvm/internal/cache"
	"github.com/funvibe/loxvm/internal/config"
)

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Run(args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunFile(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name       string
		source     string
		wantCode   int
		wantStdout string
		wantStderr string
	}{
		{"ok", "1 + 2 * 3\n", config.ExitOK, "7\n", ""},
		{"string", `"lox" + "vm"`, config.ExitOK, "loxvm\n", ""},
		{"compile error", "1 +", config.ExitCompileError, "", "[line 1] Error at end: Expected expression\n"},
		{"runtime error", "\n\ntrue + 1", config.ExitRuntimeError, "", "Operands must be two numbers or two strings.\n[line 3] in script\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeSource(t, dir, tt.name+config.SourceFileExt, tt.source)
			code, stdout, stderr := run(t, "", path)
			if code != tt.wantCode {
				t.Errorf("exit code: want %d, got %d (stderr %q)", tt.wantCode, code, stderr)
			}
			if stdout != tt.wantStdout {
				t.Errorf("stdout: want %q, got %q", tt.wantStdout, stdout)
			}
			if stderr != tt.wantStderr {
				t.Errorf("stderr: want %q, got %q", tt.wantStderr, stderr)
			}
		})
	}
}

func TestRunMissingFile(t *testing.T) {
	code, _, stderr := run(t, "", filepath.Join(t.TempDir(), "absent.lox"))
	if code != config.ExitIOError {
		t.Errorf("expected %d, got %d", config.ExitIOError, code)
	}
	if !strings.Contains(stderr, "Could not open file") {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestUsage(t *testing.T) {
	tests := [][]string{
		{"a.lox", "b.lox"},
		{"-unknown"},
		{"-r"},
		{"-o", "out.loxb"},
	}
	for _, args := range tests {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			if code, _, _ := run(t, "", args...); code != config.ExitUsage {
				t.Errorf("expected %d, got %d", config.ExitUsage, code)
			}
		})
	}
}

func TestREPL(t *testing.T) {
	input := "1 + 2\n\n\"a\" + \"b\"\n-nil\n(1\n4\n"
	code, stdout, stderr := run(t, input)
	if code != config.ExitOK {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if stdout != "3\nab\n4\n" {
		t.Errorf("unexpected stdout %q", stdout)
	}
	if !strings.Contains(stderr, "Operand must be a number.\n[line 1] in script") {
		t.Errorf("runtime error not reported: %q", stderr)
	}
	if !strings.Contains(stderr, "[line 1] Error at end: Expected ')' after expression.") {
		t.Errorf("compile error not reported: %q", stderr)
	}
	if strings.Contains(stdout, "> ") {
		t.Error("prompt printed for non-terminal input")
	}
}

func TestPrintCodeAndTrace(t *testing.T) {
	path := writeSource(t, t.TempDir(), "p.lox", "-1")
	code, stdout, _ := run(t, "", "-print-code", "-trace", path)
	if code != config.ExitOK {
		t.Fatalf("expected exit 0, got %d", code)
	}
	for _, want := range []string{"== code ==", "OP_NEGATE", "[ 1 ]", "-1\n"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("stdout missing %q:\n%s", want, stdout)
		}
	}
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeSource(t, dir, "loxvm.yaml", "print_code: true\n")
	path := writeSource(t, dir, "c.lox", "2 * 2")

	_, stdout, _ := run(t, "", "-config", cfgPath, path)
	if !strings.Contains(stdout, "== code ==") {
		t.Errorf("config print_code not applied:\n%s", stdout)
	}

	_, stdout, _ = run(t, "", "-config", cfgPath, "-print-code=false", path)
	if stdout != "4\n" {
		t.Errorf("flag should override config, got:\n%s", stdout)
	}

	bad := writeSource(t, dir, "bad.toml", "verbosity = 7\n")
	if code, _, _ := run(t, "", "-config", bad, path); code != config.ExitUsage {
		t.Errorf("expected usage error for invalid config, got %d", code)
	}
}

func TestBytecodeCache(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "cache.db")
	path := writeSource(t, dir, "s.lox", `"cached" + "!"`)

	for i := 0; i < 2; i++ {
		code, stdout, stderr := run(t, "", "-cache", dbPath, path)
		if code != config.ExitOK || stdout != "cached!\n" {
			t.Fatalf("run %d: code %d, stdout %q, stderr %q", i, code, stdout, stderr)
		}
	}

	store, err := cache.Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if _, err := store.Get(context.Background(), cache.Key(`"cached" + "!"`)); err != nil {
		t.Errorf("expected bundle in cache: %v", err)
	}
	if n, _ := store.Len(context.Background()); n != 1 {
		t.Errorf("expected 1 cached bundle, got %d", n)
	}
}

func TestCompileAndRunBundle(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "b.lox", "(2 + 3) * 4")
	out := filepath.Join(dir, "b.loxb")

	if code, stdout, stderr := run(t, "", "-o", out, src); code != config.ExitOK || stdout != "" {
		t.Fatalf("compile: code %d, stdout %q, stderr %q", code, stdout, stderr)
	}

	code, stdout, _ := run(t, "", "-r", out)
	if code != config.ExitOK || stdout != "20\n" {
		t.Errorf("run bundle: code %d, stdout %q", code, stdout)
	}

	garbage := writeSource(t, dir, "g.loxb", "not a bundle")
	if code, _, _ := run(t, "", "-r", garbage); code != config.ExitCompileError {
		t.Errorf("expected %d for a bad bundle, got %d", config.ExitCompileError, code)
	}
}

func TestCacheFailureIsReportedAndIgnored(t *testing.T) {
	dir := t.TempDir()
	// A regular file where the cache directory should be.
	blocker := writeSource(t, dir, "blocker", "")
	path := writeSource(t, dir, "w.lox", "1 + 1")

	code, stdout, stderr := run(t, "", "-v", "-4", "-cache", filepath.Join(blocker, "cache.db"), path)
	if code != config.ExitOK || stdout != "2\n" {
		t.Fatalf("run should succeed without the cache: code %d, stdout %q", code, stdout)
	}
	if !strings.HasPrefix(stderr, "Warning: bytecode cache disabled: ") {
		t.Errorf("expected cache warning on stderr, got %q", stderr)
	}
}
