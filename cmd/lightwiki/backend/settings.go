package backend

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/lightwiki/pkg/config"
	"github.com/papercomputeco/lightwiki/pkg/logger"
)

// LogFileFlag names the flag that tees logs to a JSON file.
const LogFileFlag = "log-file"

// Settings is a command's global flags plus its merged configuration.
type Settings struct {
	ConfigDir string
	Debug     bool

	// LogFile, when set, receives a JSON copy of every log record.
	LogFile string

	Config *config.Config

	logFile io.Closer
}

// AddLogFileFlag registers --log-file on cmd.
func AddLogFileFlag(cmd *cobra.Command) {
	cmd.Flags().String(LogFileFlag, "", "Also write JSON logs to this file")
}

// LoadSettings resolves the configuration for cmd, binding the registry flags
// named by keys so they take precedence over env and config.toml.
func LoadSettings(cmd *cobra.Command, keys ...string) (*Settings, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")
	debug, _ := cmd.Flags().GetBool("debug")
	logFile, _ := cmd.Flags().GetString(LogFileFlag)

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, keys)

	return &Settings{
		ConfigDir: configDir,
		Debug:     debug,
		LogFile:   logFile,
		Config:    config.Decode(v),
	}, nil
}

// Logger returns the CLI logger. Logs go to stderr so stdout stays pipeable,
// and are copied as JSON to LogFile when one is set. Close releases the file.
func (s *Settings) Logger() (*slog.Logger, error) {
	console := logger.New(
		logger.WithDebug(s.Debug),
		logger.WithPretty(true),
		logger.WithWriter(os.Stderr),
	)
	if s.LogFile == "" {
		return console, nil
	}

	file, closer, err := logger.File(s.LogFile, logger.WithDebug(s.Debug))
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	s.logFile = closer
	return logger.Multi(console, file), nil
}

// Close closes the log file opened by Logger, if any.
func (s *Settings) Close() error {
	if s.logFile == nil {
		return nil
	}
	err := s.logFile.Close()
	s.logFile = nil
	return err
}

// WithTimeout bounds ctx by d when d is positive.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
