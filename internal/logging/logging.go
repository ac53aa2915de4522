// Package logging はzerologベースのロガー構築を提供する。
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config はロガー設定。
type Config struct {
	Level  string `mapstructure:"level" toml:"level"`
	Dir    string `mapstructure:"dir" toml:"dir"`
	Pretty bool   `mapstructure:"pretty" toml:"pretty"`
}

var (
	global zerolog.Logger
	mu     sync.RWMutex
)

func init() {
	// Init前に使われる場合のデフォルト
	global = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// New はコンソールと日付別ファイルに同時出力するロガーを作成する。
func New(cfg Config) zerolog.Logger {
	writers := []io.Writer{newConsoleWriter(cfg.Pretty, os.Stdout, os.Stderr)}
	if cfg.Dir != "" {
		writers = append(writers, NewFileWriter(cfg.Dir))
	}

	return zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()
}

// Init はグローバルロガーを設定する。起動時に一度呼び出す。
func Init(cfg Config) zerolog.Logger {
	l := New(cfg)

	mu.Lock()
	global = l
	mu.Unlock()

	return l
}

// L はグローバルロガーを返す。
func L() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// ParseLevel はログレベル文字列をzerolog.Levelに変換する。不明な値はinfo扱い。
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// consoleWriter はwarn以上をstderr、それ以外をstdoutに振り分ける。
type consoleWriter struct {
	out io.Writer
	err io.Writer
}

func newConsoleWriter(pretty bool, stdout, stderr io.Writer) *consoleWriter {
	if pretty {
		return &consoleWriter{
			out: zerolog.ConsoleWriter{Out: stdout, TimeFormat: time.RFC3339},
			err: zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.RFC3339},
		}
	}
	return &consoleWriter{out: stdout, err: stderr}
}

func (w *consoleWriter) Write(p []byte) (int, error) {
	return w.out.Write(p)
}

func (w *consoleWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level >= zerolog.WarnLevel && level != zerolog.NoLevel {
		return w.err.Write(p)
	}
	return w.out.Write(p)
}
