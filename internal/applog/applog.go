// Package applog provides a rotating, error-only file logger for
// background-task failures that must survive past the lifetime of the
// process that logged them.
//
// Features:
//   - Only warning/error level messages are recorded
//   - Automatic log rotation when the file exceeds a configurable size
//   - Rotated logs are gzip-compressed to save disk space
//   - Retains a bounded number of compressed archives
//   - Thread-safe: all operations are protected by a mutex
package applog

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	// defaultMaxFileSize is the threshold in bytes before rotation (10 MB).
	defaultMaxFileSize = 10 << 20
	// defaultMaxBackups is the number of compressed archives kept by default.
	defaultMaxBackups = 5
	// writeBufSize is the size of the internal write buffer.
	writeBufSize = 4096
)

// Logger is a rotating error-file logger. The zero value is a valid,
// fully inert no-op logger: every method is safe to call on a nil
// *Logger, so embedding code that never opts into file logging pays
// nothing for it.
type Logger struct {
	mu         sync.Mutex
	file       *os.File
	dir        string
	path       string
	size       int64
	buf        []byte
	closed     bool
	maxRotSize int64
	maxBackups int
}

// Open creates (or appends to) a rotating log file under dir. maxSizeMB
// and maxBackups select the rotation threshold and retained-archive
// count; zero or negative values fall back to the package defaults.
func Open(dir string, maxSizeMB, maxBackups int) (*Logger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, "captchaforge.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat log file: %w", err)
	}

	maxRot := int64(defaultMaxFileSize)
	if maxSizeMB > 0 {
		maxRot = int64(maxSizeMB) << 20
	}
	backups := defaultMaxBackups
	if maxBackups > 0 {
		backups = maxBackups
	}

	return &Logger{
		file:       f,
		dir:        dir,
		path:       path,
		size:       info.Size(),
		buf:        make([]byte, 0, writeBufSize),
		maxRotSize: maxRot,
		maxBackups: backups,
	}, nil
}

// Warnf writes a formatted warning to the log file. A nil Logger, or
// one whose underlying file failed to open, silently discards it.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.logf("WARN", format, args...)
}

// Errorf writes a formatted error to the log file.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.logf("ERROR", format, args...)
}

func (l *Logger) logf(level, format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed || l.file == nil {
		return
	}

	now := time.Now()
	l.buf = l.buf[:0]
	l.buf = now.AppendFormat(l.buf, "2006/01/02 15:04:05")
	l.buf = append(l.buf, " ["+level+"] "...)
	l.buf = fmt.Appendf(l.buf, format, args...)
	if len(l.buf) == 0 || l.buf[len(l.buf)-1] != '\n' {
		l.buf = append(l.buf, '\n')
	}

	n, err := l.file.Write(l.buf)
	if err != nil {
		return
	}
	l.size += int64(n)

	if l.size >= l.maxRotSize {
		l.rotate()
	}
}

// rotate compresses the current log file and opens a fresh one.
// Caller must hold l.mu.
func (l *Logger) rotate() {
	l.file.Sync()
	l.file.Close()
	l.file = nil

	ts := time.Now().Format("20060102-150405")
	archivePath := filepath.Join(l.dir, fmt.Sprintf("captchaforge-%s.log.gz", ts))

	if err := compressFile(l.path, archivePath); err == nil {
		os.Truncate(l.path, 0)
	} else {
		os.Truncate(l.path, 0)
	}

	l.pruneArchives()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return
	}
	l.file = f
	l.size = 0
}

// pruneArchives removes the oldest compressed archives beyond maxBackups.
// Caller must hold l.mu.
func (l *Logger) pruneArchives() {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return
	}

	var archives []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, "captchaforge-") && strings.HasSuffix(name, ".log.gz") {
			archives = append(archives, name)
		}
	}
	if len(archives) <= l.maxBackups {
		return
	}

	sort.Strings(archives)
	for _, name := range archives[:len(archives)-l.maxBackups] {
		os.Remove(filepath.Join(l.dir, name))
	}
}

// Close flushes and closes the log file. Safe to call on a nil Logger.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true
	if l.file != nil {
		l.file.Sync()
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

func compressFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	gw, err := gzip.NewWriterLevel(out, gzip.BestSpeed)
	if err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}

	if _, err := io.Copy(gw, in); err != nil {
		gw.Close()
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := gw.Close(); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return err
	}
	return nil
}
