package common

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
)

// scribe.log rotates past 5 MB and keeps one backup
const (
	logFileName   = "scribe.log"
	logMaxSize    = 5 * 1024 * 1024
	logMaxBackups = 1
)

var (
	defaultLogger arbor.ILogger
	loggerMu      sync.Mutex
)

// GetLogger returns the logger built by InitLogger, or a console logger
// when none has been built yet
func GetLogger() arbor.ILogger {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if defaultLogger == nil {
		defaultLogger = arbor.NewLogger().WithConsoleWriter(consoleWriter("15:04:05"))
	}
	return defaultLogger
}

// InitLogger builds the logger described by the logging section. Output
// "file" writes logs/scribe.log; "stdout" (or "console") writes to the
// terminal. Console is used when no output is recognised.
func InitLogger(config *Config) arbor.ILogger {
	timeFormat := config.Logging.TimeFormat
	if timeFormat == "" {
		timeFormat = "15:04:05"
	}

	var toFile, toConsole bool
	for _, output := range config.Logging.Output {
		switch output {
		case "file":
			toFile = true
		case "stdout", "console":
			toConsole = true
		}
	}

	logger := arbor.NewLogger()
	if toFile {
		if writer, err := fileWriter(config.Logging.Dir, timeFormat); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: file logging disabled: %v\n", err)
			toConsole = true
		} else {
			logger = logger.WithFileWriter(writer)
		}
	}
	if toConsole || !toFile {
		logger = logger.WithConsoleWriter(consoleWriter(timeFormat))
	}
	logger = logger.WithLevelFromString(config.Logging.Level)

	loggerMu.Lock()
	defaultLogger = logger
	loggerMu.Unlock()
	return logger
}

func fileWriter(dir, timeFormat string) (models.WriterConfiguration, error) {
	if dir == "" {
		dir = "./logs"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return models.WriterConfiguration{}, fmt.Errorf("create log directory %s: %w", dir, err)
	}
	return models.WriterConfiguration{
		Type:       models.LogWriterTypeFile,
		FileName:   filepath.Join(dir, logFileName),
		TimeFormat: timeFormat,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackups,
		TextOutput: true,
	}, nil
}

func consoleWriter(timeFormat string) models.WriterConfiguration {
	return models.WriterConfiguration{
		Type:       models.LogWriterTypeConsole,
		TimeFormat: timeFormat,
		TextOutput: true,
	}
}
