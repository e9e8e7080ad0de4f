package log

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"
	"golang.org/x/exp/slog"

	opservice "github.com/jinmel/optimism-bridge/op-service"
)

const (
	LevelFlagName  = "log.level"
	FormatFlagName = "log.format"
	ColorFlagName  = "log.color"
)

type FormatType string

const (
	FormatText     FormatType = "text"
	FormatTerminal FormatType = "terminal"
	FormatLogFmt   FormatType = "logfmt"
	FormatJSON     FormatType = "json"
)

func (ft FormatType) String() string {
	return string(ft)
}

func (ft *FormatType) Set(value string) error {
	switch FormatType(value) {
	case FormatText, FormatTerminal, FormatLogFmt, FormatJSON:
		*ft = FormatType(value)
		return nil
	default:
		return fmt.Errorf("unrecognized log format: %q", value)
	}
}

// LevelFlagValue is a cli.Generic value for the log level flag.
type LevelFlagValue slog.Level

func (lvl *LevelFlagValue) Set(value string) error {
	v, err := ParseLevel(value)
	if err != nil {
		return err
	}
	*lvl = LevelFlagValue(v)
	return nil
}

func (lvl LevelFlagValue) String() string {
	switch slog.Level(lvl) {
	case log.LevelTrace:
		return "trace"
	case log.LevelDebug:
		return "debug"
	case log.LevelInfo:
		return "info"
	case log.LevelWarn:
		return "warn"
	case log.LevelError:
		return "error"
	case log.LevelCrit:
		return "crit"
	default:
		return slog.Level(lvl).String()
	}
}

func (lvl LevelFlagValue) Level() slog.Level {
	return slog.Level(lvl)
}

// ParseLevel accepts the level names the flag documents.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace", "trce":
		return log.LevelTrace, nil
	case "debug", "dbug":
		return log.LevelDebug, nil
	case "info":
		return log.LevelInfo, nil
	case "warn":
		return log.LevelWarn, nil
	case "error", "eror":
		return log.LevelError, nil
	case "crit":
		return log.LevelCrit, nil
	default:
		return 0, fmt.Errorf("unknown log level: %q", s)
	}
}

func CLIFlags(envPrefix string) []cli.Flag {
	level := LevelFlagValue(log.LevelInfo)
	format := FormatText
	return []cli.Flag{
		&cli.GenericFlag{
			Name:    LevelFlagName,
			Usage:   "The lowest log level that will be output",
			Value:   &level,
			EnvVars: opservice.PrefixEnvVar(envPrefix, "LOG_LEVEL"),
		},
		&cli.GenericFlag{
			Name:    FormatFlagName,
			Usage:   "Format the log output. Supported formats: 'text', 'terminal', 'logfmt', 'json'",
			Value:   &format,
			EnvVars: opservice.PrefixEnvVar(envPrefix, "LOG_FORMAT"),
		},
		&cli.BoolFlag{
			Name:    ColorFlagName,
			Usage:   "Color the log output if in terminal mode",
			EnvVars: opservice.PrefixEnvVar(envPrefix, "LOG_COLOR"),
		},
	}
}

type CLIConfig struct {
	Level  slog.Level
	Color  bool
	Format FormatType
}

func DefaultCLIConfig() CLIConfig {
	return CLIConfig{
		Level:  log.LevelInfo,
		Format: FormatText,
		Color:  isatty.IsTerminal(os.Stdout.Fd()),
	}
}

func ReadCLIConfig(ctx *cli.Context) CLIConfig {
	cfg := DefaultCLIConfig()
	if v, ok := ctx.Generic(LevelFlagName).(*LevelFlagValue); ok && v != nil {
		cfg.Level = v.Level()
	}
	if v, ok := ctx.Generic(FormatFlagName).(*FormatType); ok && v != nil {
		cfg.Format = *v
	}
	if ctx.IsSet(ColorFlagName) {
		cfg.Color = ctx.Bool(ColorFlagName)
	}
	return cfg
}

// NewLogger creates a logger writing to wr in the configured format.
func NewLogger(wr io.Writer, cfg CLIConfig) log.Logger {
	return log.NewLogger(NewHandler(wr, cfg))
}

func NewHandler(wr io.Writer, cfg CLIConfig) slog.Handler {
	switch cfg.Format {
	case FormatJSON:
		return slog.NewJSONHandler(wr, &slog.HandlerOptions{Level: cfg.Level})
	case FormatLogFmt:
		return log.LogfmtHandlerWithLevel(wr, cfg.Level)
	case FormatTerminal:
		return log.NewTerminalHandlerWithLevel(wr, cfg.Level, cfg.Color)
	default:
		return log.NewTerminalHandlerWithLevel(wr, cfg.Level, cfg.Color && isatty.IsTerminal(os.Stdout.Fd()))
	}
}

// SetGlobalLogHandler replaces the root logger used by log.Info and friends.
func SetGlobalLogHandler(h slog.Handler) {
	log.SetDefault(log.NewLogger(h))
}

// SetupDefaults installs a terminal logger at info level until the service
// configures its own.
func SetupDefaults() {
	SetGlobalLogHandler(NewHandler(os.Stdout, DefaultCLIConfig()))
}
