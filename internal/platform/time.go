package platform

import "time"

// Jakarta は通知とアーカイブ照合で使う固定タイムゾーン(WIB, UTC+7)。
var Jakarta = time.FixedZone("WIB", 7*60*60)

// FromUnix はUnix秒をtime.Timeに変換する。0以下はゼロ値。
func FromUnix(sec int64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

// SecondKey は時刻をWIBの秒精度文字列にする。開始時刻の一致判定に使う。
func SecondKey(t time.Time) string {
	return t.In(Jakarta).Format("2006-01-02 15:04:05")
}
