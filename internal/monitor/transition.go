package monitor

import (
	"time"

	"github.com/hamed0406/downwatch/internal/domain"
)

// Policy holds the alerting thresholds used by Decide.
type Policy struct {
	AlertAfter       time.Duration
	ReminderInterval time.Duration
}

// Decision is the outcome of one transition: the record to persist and the
// messages to send once it is persisted.
type Decision struct {
	State      domain.MonitorState
	Notify     []Notification
	DownFor    time.Duration
	HardOutage bool
}

// Decide applies one probe classification to prev. It has no side effects.
func Decide(prev domain.MonitorState, up bool, now time.Time, p Policy) Decision {
	st := prev.Clone()
	st.Normalize()
	if up {
		return decideUp(st, now)
	}
	return decideDown(st, now, p)
}

func decideUp(st domain.MonitorState, now time.Time) Decision {
	var d Decision
	if st.LastStatus == domain.StatusDown && st.LastAlertSent == domain.AlertDown {
		n := Notification{Kind: KindRecover}
		if st.DownSince != nil {
			elapsed := nonNegative(now.Sub(*st.DownSince))
			n.Elapsed = &elapsed
		}
		// recovery is never muted and lifts the mute
		d.Notify = append(d.Notify, n)
		st.LastAlertSent = domain.AlertRecover
		st.Muted = false
		st.LastReminderSentAt = nil
	}
	st.LastStatus = domain.StatusUp
	st.DownSince = nil
	st.LastCheck = domain.TimePtr(now)
	d.State = st
	return d
}

func decideDown(st domain.MonitorState, now time.Time, p Policy) Decision {
	var d Decision
	// a stored down record without down_since is repaired by opening the streak now
	if st.LastStatus != domain.StatusDown || st.DownSince == nil {
		st.DownSince = domain.TimePtr(now)
	}
	st.LastStatus = domain.StatusDown
	st.LastCheck = domain.TimePtr(now)

	d.DownFor = nonNegative(now.Sub(*st.DownSince))
	d.HardOutage = d.DownFor >= p.AlertAfter

	if d.HardOutage {
		elapsed := d.DownFor
		if st.LastAlertSent != domain.AlertDown {
			if !st.Muted {
				d.Notify = append(d.Notify, Notification{Kind: KindDown, Elapsed: &elapsed})
			}
			st.LastAlertSent = domain.AlertDown
			st.LastReminderSentAt = domain.TimePtr(now)
		} else if !st.Muted && reminderDue(st.LastReminderSentAt, now, p.ReminderInterval) {
			d.Notify = append(d.Notify, Notification{Kind: KindReminder, Elapsed: &elapsed})
			st.LastReminderSentAt = domain.TimePtr(now)
		}
	}
	d.State = st
	return d
}

func reminderDue(last *time.Time, now time.Time, interval time.Duration) bool {
	return last == nil || now.Sub(*last) >= interval
}

// ResetForMaintenance drops streak tracking. Mute flag, cursor and reminder
// timestamp are left alone.
func ResetForMaintenance(prev domain.MonitorState, now time.Time) domain.MonitorState {
	st := prev.Clone()
	st.LastStatus = domain.StatusUnknown
	st.DownSince = nil
	st.LastAlertSent = domain.AlertNone
	st.LastCheck = domain.TimePtr(now)
	return st
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
