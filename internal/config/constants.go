package config

const SourceFileExt = ".lox"

// ConfigFileNames are the file names probed, in order, when no config path is given
var ConfigFileNames = []string{"loxvm.yaml", "loxvm.yml", "loxvm.toml"}

// Process exit statuses
const (
	ExitOK           = 0
	ExitUsage        = 64
	ExitCompileError = 65
	ExitRuntimeError = 70
	ExitIOError      = 74
)

// Limits
const (
	// DefaultMaxStack bounds the VM operand stack
	DefaultMaxStack = 64 * 1024
	// MinVerbosity silences logging; MaxVerbosity enables debug output
	MinVerbosity = -4
	MaxVerbosity = 2
)

// BundleFormat is mixed into cache keys; bump it when compiled output changes.
const BundleFormat = "loxvm-bundle-1"
