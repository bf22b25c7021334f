package logger

import (
	"io"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// OutputFile writes log lines to a size-rotated file.
const OutputFile = "file"

// FileConfig configures file output and its rotation.
type FileConfig struct {
	Path       string `yaml:"path" mapstructure:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `yaml:"compress" mapstructure:"compress"`
}

func (c *FileConfig) ApplyDefaults() {
	if c.MaxSizeMB <= 0 {
		c.MaxSizeMB = 100
	}
	if c.MaxAgeDays <= 0 {
		c.MaxAgeDays = 14
	}
}

var (
	filesMu sync.Mutex
	files   = make(map[string]*lumberjack.Logger)
)

// fileWriter returns the rotating writer for cfg.Path. Loggers built for
// the same path share it so rotation happens in one place.
func fileWriter(cfg FileConfig) io.Writer {
	filesMu.Lock()
	defer filesMu.Unlock()
	if w, ok := files[cfg.Path]; ok {
		return w
	}
	cfg.ApplyDefaults()
	w := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
		LocalTime:  true,
	}
	files[cfg.Path] = w
	return w
}
