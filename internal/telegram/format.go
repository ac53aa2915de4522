package telegram

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/yuu1111/LiveNotifier/internal/platform"
)

var (
	hari  = [...]string{"Minggu", "Senin", "Selasa", "Rabu", "Kamis", "Jumat", "Sabtu"}
	bulan = [...]string{"Januari", "Februari", "Maret", "April", "Mei", "Juni", "Juli", "Agustus", "September", "Oktober", "November", "Desember"}
	// 短縮月名はid_IDロケールの%bに合わせる
	bulanPendek = [...]string{"Jan", "Feb", "Mar", "Apr", "Mei", "Jun", "Jul", "Agu", "Sep", "Okt", "Nov", "Des"}
)

var printer = message.NewPrinter(language.Indonesian)

// DayName はWIBでの曜日名を返す。
func DayName(t time.Time) string {
	return hari[t.In(platform.Jakarta).Weekday()]
}

// FormatWIB は "Senin, 01 Jan 2024 | 19:00:00 WIB" 形式にフォーマットする。
// ゼロ値は "-" を返す。
func FormatWIB(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	w := t.In(platform.Jakarta)
	return fmt.Sprintf("%s, %02d %s %d | %s WIB",
		hari[w.Weekday()], w.Day(), bulanPendek[w.Month()-1], w.Year(), w.Format("15:04:05"))
}

// FormatDate は "01 Januari 2024" 形式にフォーマットする。
func FormatDate(t time.Time) string {
	w := t.In(platform.Jakarta)
	return fmt.Sprintf("%02d %s %d", w.Day(), bulan[w.Month()-1], w.Year())
}

// FormatClock は "19:00:00 WIB" 形式にフォーマットする。
func FormatClock(t time.Time) string {
	return t.In(platform.Jakarta).Format("15:04:05") + " WIB"
}

// FormatDuration は HH:MM:SS 形式にフォーマットする。24時間を超えても時は繰り上げない。
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// FormatCount はインドネシア式の桁区切り(1.234.567)で数値を返す。
func FormatCount(n int64) string {
	return printer.Sprintf("%d", n)
}

// FormatRupiah は "Rp. 250.000" 形式にフォーマットする。
func FormatRupiah(n int64) string {
	return "Rp. " + FormatCount(n)
}
