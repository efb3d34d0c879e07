package domain

import "time"

// AttendanceStatus イベントに対するユーザーの出席状況
type AttendanceStatus int

const (
	AttendanceNotAttending AttendanceStatus = iota
	AttendanceOrganizer
	AttendanceAccepted
	AttendanceTentative
	AttendanceDeclined
	AttendanceNeedsAction
)

// ParseResponseStatus Google Calendarの responseStatus を出席状況に変換
func ParseResponseStatus(status string) AttendanceStatus {
	switch status {
	case "accepted":
		return AttendanceAccepted
	case "tentative":
		return AttendanceTentative
	case "declined":
		return AttendanceDeclined
	case "needsAction":
		return AttendanceNeedsAction
	default:
		return AttendanceNotAttending
	}
}

// ConstrainsLocation ユーザーの現在地を拘束する出席状況かどうか
func (s AttendanceStatus) ConstrainsLocation() bool {
	return s == AttendanceOrganizer || s == AttendanceAccepted || s == AttendanceTentative
}

func (s AttendanceStatus) String() string {
	switch s {
	case AttendanceOrganizer:
		return "organizer"
	case AttendanceAccepted:
		return "accepted"
	case AttendanceTentative:
		return "tentative"
	case AttendanceDeclined:
		return "declined"
	case AttendanceNeedsAction:
		return "needsAction"
	default:
		return "notAttending"
	}
}

// CalendarEvent カレンダーイベントのドメインエンティティ
//
// 終日イベントの End は翌日0時(排他的)か、カレンダー側が明示的な終了時刻を
// 返した場合はその時刻になる。
type CalendarEvent struct {
	ID          string
	Title       string
	StartTime   time.Time
	EndTime     time.Time
	TimeZone    string
	IsAllDay    bool
	Location    string
	Description string
	Attendance  AttendanceStatus
}

// Validate リゾルバが分類に必要な項目を持っているか確認
func (e CalendarEvent) Validate() error {
	if e.StartTime.IsZero() {
		return MalformedEventError(e.ID, "開始時刻が設定されていません")
	}
	if e.EndTime.IsZero() {
		return MalformedEventError(e.ID, "終了時刻が設定されていません")
	}
	if e.EndTime.Before(e.StartTime) {
		return MalformedEventError(e.ID, "終了時刻が開始時刻より前です")
	}
	return nil
}

// Location 指定されたタイムゾーン名を解決し、失敗時は fallback を返す
func Location(name string, fallback *time.Location) *time.Location {
	if name == "" {
		return fallback
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return fallback
	}
	return loc
}
