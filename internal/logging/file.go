package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// wib はログファイルの日付計算に使うタイムゾーン(UTC+7)。
var wib = time.FixedZone("WIB", 7*60*60)

// FileWriter はJSONログを日付別ファイルに追記するzerolog.LevelWriter。
// 全レベルを app-YYYY-MM-DD.log に、error以上を error-YYYY-MM-DD.log にも書き込む。
type FileWriter struct {
	dir string
	now func() time.Time

	mu      sync.Mutex
	ensured bool
}

// NewFileWriter はFileWriterを作成する。
func NewFileWriter(dir string) *FileWriter {
	return &FileWriter{dir: dir, now: time.Now}
}

// AppLogPath は指定時刻の日付に対応するappログのパスを返す。
func (w *FileWriter) AppLogPath(t time.Time) string {
	return filepath.Join(w.dir, "app-"+dateString(t)+".log")
}

// ErrorLogPath は指定時刻の日付に対応するerrorログのパスを返す。
func (w *FileWriter) ErrorLogPath(t time.Time) string {
	return filepath.Join(w.dir, "error-"+dateString(t)+".log")
}

// Write はレベル不明のエントリをappログにのみ書き込む。
func (w *FileWriter) Write(p []byte) (int, error) {
	return w.WriteLevel(zerolog.NoLevel, p)
}

// WriteLevel はレベルに応じて書き込み先を選ぶ。
func (w *FileWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ensureDir()

	now := w.now()
	w.appendToFile(w.AppLogPath(now), p)
	if level >= zerolog.ErrorLevel && level != zerolog.NoLevel {
		w.appendToFile(w.ErrorLogPath(now), p)
	}

	return len(p), nil
}

// ensureDir はログディレクトリを確保する。
func (w *FileWriter) ensureDir() {
	if w.ensured {
		return
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create log directory: %v\n", err)
	}
	w.ensured = true
}

func (w *FileWriter) appendToFile(path string, line []byte) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write log to %s: %v\n", path, err)
		return
	}
	defer func() { _ = f.Close() }()
	_, _ = f.Write(line)
}

// TodayLogPath はdir配下の今日(WIB)のappログパスを返す。
func TodayLogPath(dir string) string {
	return filepath.Join(dir, "app-"+dateString(time.Now())+".log")
}

// dateString はWIB日付をYYYY-MM-DD形式で返す。
func dateString(t time.Time) string {
	return t.In(wib).Format("2006-01-02")
}
