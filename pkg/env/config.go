package env

import (
	"fmt"

	"digital.vasic.predicates/pkg/logging"
)

// Environment variable names.
const (
	KeyBankDir     = "PREDICATES_BANK_DIR"
	KeyBankPattern = "PREDICATES_BANK_PATTERN"
	KeyLogLevel    = "PREDICATES_LOG_LEVEL"
	KeyLogFormat   = "PREDICATES_LOG_FORMAT"
	KeyLogDir      = "PREDICATES_LOG_DIR"
	KeyMonitorAddr = "PREDICATES_MONITOR_ADDR"
)

// Log output formats.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Config holds runtime settings for the predicates CLI.
type Config struct {
	BankDir     string
	BankPattern string
	LogLevel    logging.LogLevel
	LogFormat   string
	LogDir      string
	MonitorAddr string
}

// DefaultMonitorAddr is used when no address is configured.
const DefaultMonitorAddr = "127.0.0.1:8765"

// LoadConfig builds a Config from l.
func LoadConfig(l Loader) (*Config, error) {
	level, err := logging.ParseLevel(l.GetWithDefault(KeyLogLevel, "warn"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", KeyLogLevel, err)
	}

	format := l.GetWithDefault(KeyLogFormat, FormatConsole)
	if format != FormatJSON && format != FormatConsole {
		return nil, fmt.Errorf(
			"%s: unsupported format %q", KeyLogFormat, format,
		)
	}

	return &Config{
		BankDir:     l.Get(KeyBankDir),
		BankPattern: l.Get(KeyBankPattern),
		LogLevel:    level,
		LogFormat:   format,
		LogDir:      l.Get(KeyLogDir),
		MonitorAddr: l.GetWithDefault(KeyMonitorAddr, DefaultMonitorAddr),
	}, nil
}
