package telegram

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/yuu1111/LiveNotifier/internal/history"
	"github.com/yuu1111/LiveNotifier/internal/platform"
	"github.com/yuu1111/LiveNotifier/internal/platform/idn"
	"github.com/yuu1111/LiveNotifier/internal/platform/showroom"
	"github.com/yuu1111/LiveNotifier/internal/tracker"
)

// Button はURLボタン1個。
type Button struct {
	Text string
	URL  string
}

// Announcement は配信開始通知の内容。
type Announcement struct {
	PhotoURL string
	Caption  string
	Buttons  [][]Button
}

// platformLabel はキャプションに出すプラットフォーム名。
var platformLabel = map[tracker.Platform]string{
	tracker.PlatformShowroom: "Showroom",
	tracker.PlatformIDN:      "IDN",
	tracker.PlatformTikTok:   "Tiktok",
}

// orDefault は空文字列の場合にデフォルト値を返す。
func orDefault(s, defaultVal string) string {
	if s == "" {
		return defaultVal
	}
	return s
}

// headline は "<b>名前</b> sedang live <b>IDN</b>." のような1行目を組み立てる。
func headline(p tracker.Platform, name, verb string) string {
	escaped := html.EscapeString(name)
	if p == tracker.PlatformShowroom && showroom.IsOfficial(name) {
		return fmt.Sprintf("<b>%s</b> %s live!", escaped, verb)
	}
	return fmt.Sprintf("<b>%s</b> %s live <b>%s</b>.", escaped, verb, platformLabel[p])
}

func quote(title string) string {
	if title == "" {
		return ""
	}
	return "<blockquote>" + html.EscapeString(title) + "</blockquote>\n"
}

// BuildAnnouncement は配信開始時の写真キャプションとボタンを組み立てる。
func BuildAnnouncement(key tracker.Key, snap tracker.Snapshot, playerURL string) Announcement {
	name := orDefault(snap.DisplayName, key.Entity)
	a := Announcement{PhotoURL: snap.CoverImageURL}

	var b strings.Builder
	switch {
	case key.Platform == tracker.PlatformShowroom && snap.Premium:
		fmt.Fprintf(&b, "<b>%s</b> sedang live <b>premium</b>!\n\n", html.EscapeString(name))
		fmt.Fprintf(&b, "🗓️ %s\n", FormatWIB(snap.StartedAt))
		a.Caption = b.String()
		a.Buttons = [][]Button{{{Text: "Showroom", URL: snap.WebURL}}}
		return a
	default:
		b.WriteString(headline(key.Platform, name, "sedang"))
		b.WriteString("\n\n")
	}

	if key.Platform != tracker.PlatformShowroom {
		b.WriteString(quote(snap.Title))
	}
	fmt.Fprintf(&b, "🗓️ %s\n", FormatWIB(snap.StartedAt))
	if snap.PlaybackURL != "" {
		fmt.Fprintf(&b, "⚡ Streaming URL: <pre>%s</pre>", html.EscapeString(snap.PlaybackURL))
	}
	a.Caption = strings.TrimRight(b.String(), "\n")

	var row []Button
	switch key.Platform {
	case tracker.PlatformShowroom:
		row = append(row, Button{Text: "Showroom", URL: snap.WebURL})
	case tracker.PlatformIDN:
		row = append(row,
			Button{Text: "IDN APP", URL: idn.AppURL(snap.Slug)},
			Button{Text: "IDN WEB", URL: snap.WebURL},
		)
	case tracker.PlatformTikTok:
		row = append(row, Button{Text: "Tiktok", URL: snap.WebURL})
	}

	fullscreen := Button{Text: "Fullscreen", URL: playerURL + snap.PlaybackURL}
	switch {
	case snap.PlaybackURL == "":
		a.Buttons = [][]Button{row}
	case key.Platform == tracker.PlatformIDN:
		a.Buttons = [][]Button{row, {fullscreen}}
	default:
		a.Buttons = [][]Button{append(row, fullscreen)}
	}
	return a
}

// BuildSummary は配信終了時に差し替えるキャプションを組み立てる。
// 概算のSummaryではギフトとコメントの行を省く。
func BuildSummary(key tracker.Key, session tracker.SessionState, summary history.Summary) string {
	name := orDefault(session.DisplayName, key.Entity)

	var b strings.Builder
	b.WriteString(headline(key.Platform, name, "telah selesai"))
	b.WriteString("\n\n")
	if key.Platform != tracker.PlatformShowroom {
		b.WriteString(quote(session.Title))
	}
	fmt.Fprintf(&b, "🕙 Durasi live: <b>%s</b>\n", FormatDuration(summary.Duration))
	fmt.Fprintf(&b, "⚡ Mulai: <b>%s</b>\n", FormatWIB(summary.StartedAt))
	fmt.Fprintf(&b, "⚡ Selesai: <b>%s</b>\n", FormatWIB(summary.EndedAt))

	viewers := FormatCount(int64(summary.Viewers))
	if summary.Approximate {
		if key.Platform == tracker.PlatformTikTok {
			fmt.Fprintf(&b, "👥 <b>± %s</b>", viewers)
		} else {
			fmt.Fprintf(&b, "👥 <b>%s</b>", viewers)
		}
		return b.String()
	}

	fmt.Fprintf(&b, "👥 <b>%s</b> dari <b>%s</b> Penonton aktif\n", viewers, FormatCount(int64(summary.ActiveViewers)))
	fmt.Fprintf(&b, "💬 <b>%s</b> dari <b>%s</b> Pengguna\n", FormatCount(int64(summary.Comments)), FormatCount(int64(summary.Commenters)))
	fmt.Fprintf(&b, "🎁 <b>%sG (± %s)</b>", FormatCount(int64(summary.Gifts)), FormatRupiah(summary.CurrencyValue))
	return b.String()
}

// StartupText は起動時に送るメッセージ。
func StartupText(now time.Time) string {
	t := now.In(platform.Jakarta)
	return "<b>Bot berhasil dimulai ulang!</b>\n<pre>" +
		fmt.Sprintf("Hari    : %s\n", DayName(t)) +
		fmt.Sprintf("Tanggal : %s\n", FormatDate(t)) +
		fmt.Sprintf("Waktu   : %s</pre>", FormatClock(t))
}
