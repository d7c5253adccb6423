package domain

import "time"

// Status is the last classified probe outcome.
type Status string

const (
	StatusUnknown Status = "unknown"
	StatusUp      Status = "up"
	StatusDown    Status = "down"
)

// ParseStatus maps stored text to a Status. Anything unrecognised is Unknown.
func ParseStatus(s string) Status {
	switch Status(s) {
	case StatusUp, StatusDown:
		return Status(s)
	default:
		return StatusUnknown
	}
}

func (s *Status) UnmarshalText(b []byte) error {
	*s = ParseStatus(string(b))
	return nil
}

// AlertKind is the alert class that was last dispatched for the target.
type AlertKind string

const (
	AlertNone    AlertKind = "none"
	AlertDown    AlertKind = "down"
	AlertRecover AlertKind = "recover"
)

func ParseAlertKind(s string) AlertKind {
	switch AlertKind(s) {
	case AlertDown, AlertRecover:
		return AlertKind(s)
	default:
		return AlertNone
	}
}

func (a *AlertKind) UnmarshalText(b []byte) error {
	*a = ParseAlertKind(string(b))
	return nil
}

// MonitorState is the single persisted record carried between cycles.
type MonitorState struct {
	LastStatus         Status     `json:"last_status"`
	DownSince          *time.Time `json:"down_since"`
	LastAlertSent      AlertKind  `json:"last_alert_sent"`
	LastCheck          *time.Time `json:"last_check"`
	Muted              bool       `json:"muted"`
	LastReminderSentAt *time.Time `json:"last_reminder_sent_ts"`
	CommandCursor      *int64     `json:"command_cursor"`
}

// DefaultState is the record used when nothing (readable) is stored yet.
func DefaultState() MonitorState {
	return MonitorState{
		LastStatus:    StatusUnknown,
		LastAlertSent: AlertNone,
	}
}

// Normalize fills zero-value enums left behind by partial records.
func (s *MonitorState) Normalize() {
	if s.LastStatus == "" {
		s.LastStatus = StatusUnknown
	}
	if s.LastAlertSent == "" {
		s.LastAlertSent = AlertNone
	}
}

// Clone returns a deep copy; pointer fields are not shared.
func (s MonitorState) Clone() MonitorState {
	out := s
	out.DownSince = copyTime(s.DownSince)
	out.LastCheck = copyTime(s.LastCheck)
	out.LastReminderSentAt = copyTime(s.LastReminderSentAt)
	if s.CommandCursor != nil {
		v := *s.CommandCursor
		out.CommandCursor = &v
	}
	return out
}

// Violations lists combinations the transition rules never produce.
// An empty result means the record is consistent.
func (s MonitorState) Violations() []string {
	var out []string
	if s.DownSince != nil && s.LastStatus != StatusDown {
		out = append(out, "down_since set while last_status is "+string(s.LastStatus))
	}
	if s.LastStatus == StatusDown && s.DownSince == nil {
		out = append(out, "down streak open without down_since")
	}
	if s.LastStatus == StatusUp && s.LastAlertSent == AlertDown {
		out = append(out, "up with an unresolved down alert")
	}
	if s.LastReminderSentAt != nil && s.LastAlertSent == AlertRecover {
		out = append(out, "reminder timestamp kept after recovery")
	}
	return out
}

// Command is one inbound chat message as seen by the command step.
type Command struct {
	ID       int64
	SenderID string
	Text     string
}

// TimePtr returns a pointer to a copy of t.
func TimePtr(t time.Time) *time.Time {
	return &t
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
