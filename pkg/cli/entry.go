// Package cli implements the loxvm command: a REPL when run without
// arguments, otherwise a runner for one source file or compiled bundle.
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/funvibe/loxvm/internal/cache"
	"github.com/funvibe/loxvm/internal/config"
	"github.com/funvibe/loxvm/internal/vm"
	"github.com/mattn/go-isatty"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

const usage = `Usage:
  loxvm [flags]                     start a REPL
  loxvm [flags] <file.lox>          run a source file
  loxvm [flags] -o <out> <file.lox> compile a source file to a bundle
  loxvm [flags] -r <bundle>         run a compiled bundle

Flags:
`

// options are the command-line flags. Flags that were set explicitly
// override the config file.
type options struct {
	configPath string
	cachePath  string
	printCode  bool
	trace      bool
	verbosity  int
	output     string
	runBundle  bool
}

// session carries what one invocation shares: settings, the heap every
// chunk is compiled into, and the optional bytecode cache.
type session struct {
	cfg    *config.Config
	heap   *vm.Heap
	store  *cache.Store
	stdout io.Writer
	stderr io.Writer
	log    commonlog.Logger
}

// Run executes the loxvm command and returns the process exit status.
func Run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var opts options
	fs := flag.NewFlagSet("loxvm", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		io.WriteString(stderr, usage)
		fs.PrintDefaults()
	}
	fs.StringVar(&opts.configPath, "config", "", "settings file (default: loxvm.yaml, loxvm.yml or loxvm.toml in the working directory)")
	fs.StringVar(&opts.cachePath, "cache", "", "SQLite bytecode cache path")
	fs.BoolVar(&opts.printCode, "print-code", false, "print the disassembled chunk after compiling")
	fs.BoolVar(&opts.trace, "trace", false, "trace every executed instruction")
	fs.IntVar(&opts.verbosity, "v", 0, "log verbosity (-4 silent, 0 warnings and notices, 2 debug)")
	fs.StringVar(&opts.output, "o", "", "write the compiled bundle to this path instead of running")
	fs.BoolVar(&opts.runBundle, "r", false, "treat the argument as a compiled bundle")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return config.ExitOK
		}
		return config.ExitUsage
	}
	if fs.NArg() > 1 || ((opts.output != "" || opts.runBundle) && fs.NArg() != 1) {
		fs.Usage()
		return config.ExitUsage
	}

	cfg, err := loadConfig(fs, &opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", err)
		return config.ExitUsage
	}

	// Logs go to the process's stderr; run diagnostics use the stderr writer.
	commonlog.Configure(cfg.Verbosity, nil)

	s := &session{
		cfg:    cfg,
		heap:   vm.NewHeap(),
		stdout: stdout,
		stderr: stderr,
		log:    commonlog.GetLogger("loxvm.cli"),
	}

	switch {
	case fs.NArg() == 0:
		return s.repl(stdin)
	case opts.runBundle:
		return s.runBundleFile(fs.Arg(0))
	default:
		if cfg.Cache != "" && s.openCache(cfg.Cache) {
			defer s.store.Close()
		}
		if opts.output != "" {
			return s.compileFile(fs.Arg(0), opts.output)
		}
		return s.runFile(fs.Arg(0))
	}
}

// loadConfig reads the settings file and applies explicitly set flags on top.
func loadConfig(fs *flag.FlagSet, opts *options) (*config.Config, error) {
	path := opts.configPath
	if path == "" {
		found, err := config.Discover(".")
		if err != nil {
			return nil, err
		}
		path = found
	}

	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "cache":
			cfg.Cache = opts.cachePath
		case "print-code":
			cfg.PrintCode = opts.printCode
		case "trace":
			cfg.Trace = opts.trace
		case "v":
			cfg.Verbosity = opts.verbosity
		}
	})
	return cfg, cfg.Validate()
}

// openCache enables the bytecode cache. A cache that cannot be opened is
// reported and skipped; it never fails the run.
func (s *session) openCache(path string) bool {
	store, err := cache.Open(path)
	if err != nil {
		s.warn("bytecode cache disabled: %s", err)
		return false
	}
	s.store = store
	s.log.Debugf("bytecode cache at %s", store.Path())
	return true
}

// warn reports a problem that does not change the outcome of the run.
func (s *session) warn(format string, args ...interface{}) {
	fmt.Fprintf(s.stderr, "Warning: "+format+"\n", args...)
}

func (s *session) options() vm.Options {
	opts := vm.Options{
		ErrOut:   s.stderr,
		MaxStack: s.cfg.MaxStack,
		Context:  context.Background(),
	}
	if s.cfg.PrintCode {
		opts.CodeOut = s.stdout
	}
	if s.cfg.Trace {
		opts.Trace = s.stdout
	}
	return opts
}

func (s *session) repl(stdin io.Reader) int {
	interactive := false
	if f, ok := stdin.(*os.File); ok {
		interactive = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	scanner := bufio.NewScanner(stdin)
	for {
		if interactive {
			io.WriteString(s.stdout, "> ")
		}
		if !scanner.Scan() {
			if interactive {
				io.WriteString(s.stdout, "\n")
			}
			break
		}
		line := scanner.Text()
		if line == "" {
			continue
		}

		// Errors are reported and the session continues.
		value, result, err := vm.Interpret(s.heap, line, s.options())
		switch result {
		case vm.InterpretOK:
			fmt.Fprintln(s.stdout, value)
		case vm.InterpretRuntimeError:
			fmt.Fprintln(s.stderr, err)
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(s.stderr, "Error reading input: %s\n", err)
		return config.ExitIOError
	}
	return config.ExitOK
}

func (s *session) runFile(path string) int {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(s.stderr, "Could not open file \"%s\".\n", path)
		return config.ExitIOError
	}

	chunk, code := s.compile(string(source))
	if chunk == nil {
		return code
	}
	return s.execute(chunk)
}

// compile returns the chunk for source, from the cache when possible.
// On failure the chunk is nil and the exit status is returned.
func (s *session) compile(source string) (*vm.Chunk, int) {
	var key string
	if s.store != nil {
		key = cache.Key(source)
		if chunk := s.cached(key); chunk != nil {
			if s.cfg.PrintCode {
				io.WriteString(s.stdout, vm.Disassemble(chunk, "code"))
			}
			return chunk, config.ExitOK
		}
	}

	compiler := vm.NewCompiler(s.heap)
	compiler.SetErrorOutput(s.stderr)
	if s.cfg.PrintCode {
		compiler.SetCodeOutput(s.stdout)
	}
	chunk, err := compiler.Compile(source)
	if err != nil {
		return nil, config.ExitCompileError
	}

	if s.store != nil {
		s.remember(key, chunk)
	}
	return chunk, config.ExitOK
}

func (s *session) cached(key string) *vm.Chunk {
	data, err := s.store.Get(context.Background(), key)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			s.warn("reading bytecode cache: %s", err)
		}
		return nil
	}
	chunk, err := vm.DeserializeChunk(data, s.heap)
	if err != nil {
		s.warn("ignoring cached bundle: %s", err)
		return nil
	}
	return chunk
}

func (s *session) remember(key string, chunk *vm.Chunk) {
	data, err := vm.SerializeChunk(chunk)
	if err == nil {
		err = s.store.Put(context.Background(), key, data)
	}
	if err != nil {
		s.warn("writing bytecode cache: %s", err)
	}
}

func (s *session) execute(chunk *vm.Chunk) int {
	value, _, err := vm.RunChunk(s.heap, chunk, s.options())
	if err != nil {
		fmt.Fprintln(s.stderr, err)
		return config.ExitRuntimeError
	}
	fmt.Fprintln(s.stdout, value)
	s.log.Debugf("heap %s: %d objects, %d bytes", s.heap.ID, s.heap.Len(), s.heap.BytesAllocated())
	return config.ExitOK
}

// compileFile writes the bundle for a source file without running it.
func (s *session) compileFile(path, output string) int {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(s.stderr, "Could not open file \"%s\".\n", path)
		return config.ExitIOError
	}

	chunk, code := s.compile(string(source))
	if chunk == nil {
		return code
	}

	data, err := vm.SerializeChunk(chunk)
	if err != nil {
		fmt.Fprintf(s.stderr, "Serialization error: %s\n", err)
		return config.ExitCompileError
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		fmt.Fprintf(s.stderr, "Error writing bytecode file: %s\n", err)
		return config.ExitIOError
	}
	return config.ExitOK
}

func (s *session) runBundleFile(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(s.stderr, "Error reading bytecode file: %s\n", err)
		return config.ExitIOError
	}

	chunk, err := vm.DeserializeChunk(data, s.heap)
	if err != nil {
		fmt.Fprintf(s.stderr, "Deserialization error: %s\n", err)
		return config.ExitCompileError
	}
	if s.cfg.PrintCode {
		io.WriteString(s.stdout, vm.Disassemble(chunk, "code"))
	}
	return s.execute(chunk)
}
