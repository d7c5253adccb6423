package monitor

import (
	"strings"

	"github.com/hamed0406/downwatch/internal/domain"
)

const (
	cmdMute   = "mute"
	cmdUnmute = "unmute"
)

// CommandOutcome is the result of applying one fetched batch.
type CommandOutcome struct {
	State domain.MonitorState
	// Acks are sent after the new state is persisted.
	Acks []Notification
	// Seen counts commands at or past the stored cursor.
	Seen int
}

// ApplyCommands folds a batch of inbound commands into prev. Only commands
// from recipient are acted on, but every id at or past the stored cursor
// moves it. Ids below the cursor were handled by an earlier cycle and are
// skipped, so replaying a batch never toggles mute twice.
func ApplyCommands(prev domain.MonitorState, cmds []domain.Command, recipient string) CommandOutcome {
	out := CommandOutcome{State: prev.Clone()}
	st := &out.State

	var maxID *int64
	for _, c := range cmds {
		if st.CommandCursor != nil && c.ID < *st.CommandCursor {
			continue
		}
		out.Seen++
		if maxID == nil || c.ID > *maxID {
			id := c.ID
			maxID = &id
		}
		if recipient == "" || c.SenderID != recipient {
			continue
		}
		switch parseCommand(c.Text) {
		case cmdMute:
			st.Muted = true
			out.Acks = append(out.Acks, Notification{Kind: KindAck, Command: cmdMute})
		case cmdUnmute:
			st.Muted = false
			out.Acks = append(out.Acks, Notification{Kind: KindAck, Command: cmdUnmute})
		}
	}

	if maxID != nil {
		next := *maxID + 1
		if st.CommandCursor == nil || next > *st.CommandCursor {
			st.CommandCursor = &next
		}
	}
	return out
}

// parseCommand returns "mute", "unmute" or "" for text. A bot mention
// suffix ("/mute@my_bot") is accepted.
func parseCommand(text string) string {
	cmd := strings.ToLower(strings.TrimSpace(text))
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	switch cmd {
	case "/" + cmdMute:
		return cmdMute
	case "/" + cmdUnmute:
		return cmdUnmute
	default:
		return ""
	}
}
