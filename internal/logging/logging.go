package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Level     string `json:"level"`
	Directory string `json:"directory"`
	Console   bool   `json:"console"`
}

func DefaultConfig(baseDir string) Config {
	return Config{
		Level:     "info",
		Directory: filepath.Join(baseDir, "logs"),
		Console:   true,
	}
}

// Init configures the global zerolog logger. The file writer gets JSON lines, the
// console writer a human format. app names the log file and is stamped on every entry.
func Init(cfg Config, app string) (io.Closer, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var writers []io.Writer
	var file *os.File

	if cfg.Directory != "" {
		if err := os.MkdirAll(cfg.Directory, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", cfg.Directory, err)
		}
		path := filepath.Join(cfg.Directory, fmt.Sprintf("%s_%s.log", app, time.Now().Format("2006-01-02")))
		file, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
		}
		writers = append(writers, file)
	}

	if cfg.Console {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}

	if len(writers) == 0 {
		writers = append(writers, io.Discard)
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		With().
		Timestamp().
		Str("app", app).
		Logger()

	log.Debug().Str("level", level.String()).Msg("logger initialized")

	if file == nil {
		return io.NopCloser(nil), nil
	}
	return file, nil
}

// Component returns a child of the global logger tagged with the component name.
func Component(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}
