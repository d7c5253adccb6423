package monitor

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

type Kind string

const (
	KindDown     Kind = "down"
	KindReminder Kind = "reminder"
	KindRecover  Kind = "recover"
	KindAck      Kind = "ack"
	KindDebug    Kind = "debug"
)

const (
	ackMuted   = "🔕 Muted until recovery."
	ackUnmuted = "🔔 Unmuted."
)

// Notification is one outbound message before rendering. Elapsed is nil
// for a recovery whose streak start is unknown.
type Notification struct {
	Kind    Kind
	Elapsed *time.Duration
	// Command is set for acks: "mute" or "unmute".
	Command string
	// Body is used verbatim for debug messages.
	Body string
}

// Text renders the message for the monitored service name.
func (n Notification) Text(name string) string {
	switch n.Kind {
	case KindDown:
		return fmt.Sprintf("❌ %s appears DOWN for %d minutes.", name, wholeMinutes(n.Elapsed))
	case KindReminder:
		return fmt.Sprintf("❌ %s still DOWN (~%d min).", name, wholeMinutes(n.Elapsed))
	case KindRecover:
		mins := "N/A"
		if n.Elapsed != nil {
			mins = strconv.FormatFloat(math.Round(n.Elapsed.Minutes()*10)/10, 'f', -1, 64)
		}
		return fmt.Sprintf("✅ %s recovered. Downtime ~%s min.", name, mins)
	case KindAck:
		if n.Command == cmdMute {
			return ackMuted
		}
		return ackUnmuted
	default:
		return n.Body
	}
}

func wholeMinutes(d *time.Duration) int64 {
	if d == nil {
		return 0
	}
	return int64(math.Round(d.Minutes()))
}
