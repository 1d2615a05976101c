package logging

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// terminal is where the console core writes. Tests swap it for a buffer.
var terminal zapcore.WriteSyncer = os.Stderr

// levelWriter writes one level's entries into a dated directory,
// <Director>/<yyyy-mm-dd>/<level>.log, rotated by lumberjack.
type levelWriter struct {
	config  Config
	level   string
	mu      sync.Mutex
	date    string
	current *lumberjack.Logger
	now     func() time.Time
}

func newLevelWriter(config Config, level string) *levelWriter {
	return &levelWriter{
		config: config,
		level:  level,
		now:    time.Now,
	}
}

// Write implements io.Writer.
func (w *levelWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writerFor(w.now().Format("2006-01-02")).Write(p)
}

// writerFor must be called with mu held. Crossing midnight closes the old
// file and opens the next day's.
func (w *levelWriter) writerFor(date string) *lumberjack.Logger {
	if w.current != nil && w.date == date {
		return w.current
	}
	if w.current != nil {
		_ = w.current.Close()
	}

	dirPath := filepath.Join(w.config.Director, date)
	if err := os.MkdirAll(dirPath, 0o755); err != nil {
		dirPath = w.config.Director
		_ = os.MkdirAll(dirPath, 0o755)
	}

	w.date = date
	w.current = &lumberjack.Logger{
		Filename:   filepath.Join(dirPath, w.level+".log"),
		MaxSize:    w.config.MaxSize,
		MaxBackups: w.config.MaxBackups,
		MaxAge:     w.config.MaxAge,
		Compress:   w.config.Compress,
		LocalTime:  true,
	}
	return w.current
}

// Close closes the current file, if any.
func (w *levelWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current == nil {
		return nil
	}
	err := w.current.Close()
	w.current = nil
	w.date = ""
	return err
}

var (
	writerRegistry   []*levelWriter
	writerRegistryMu sync.Mutex
)

func registerWriter(w *levelWriter) {
	writerRegistryMu.Lock()
	defer writerRegistryMu.Unlock()
	writerRegistry = append(writerRegistry, w)
}

// CloseAllWriters closes every log file opened by loggers of this process.
func CloseAllWriters() error {
	writerRegistryMu.Lock()
	defer writerRegistryMu.Unlock()

	var lastErr error
	for _, w := range writerRegistry {
		if err := w.Close(); err != nil {
			lastErr = err
		}
	}
	writerRegistry = nil
	return lastErr
}

var _ io.WriteCloser = (*levelWriter)(nil)
