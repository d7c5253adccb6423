package monitor

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hamed0406/downwatch/internal/domain"
)

const chat = "-100"

func cursorOf(st domain.MonitorState) int64 {
	if st.CommandCursor == nil {
		return -1
	}
	return *st.CommandCursor
}

func TestParseCommand(t *testing.T) {
	cases := map[string]string{
		"/mute":               cmdMute,
		"  /MUTE \n":          cmdMute,
		"/Unmute":             cmdUnmute,
		"/mute@downwatch_bot": cmdMute,
		"/unmute@":            cmdUnmute,
		"/mute now":           "",
		"mute":                "",
		"":                    "",
		"/muted":              "",
	}
	for in, want := range cases {
		if got := parseCommand(in); got != want {
			t.Fatalf("parseCommand(%q)=%q want %q", in, got, want)
		}
	}
}

func TestApplyCommands_MuteUnmuteAndCursor(t *testing.T) {
	out := ApplyCommands(domain.DefaultState(), []domain.Command{
		{ID: 5, SenderID: chat, Text: "/mute"},
		{ID: 7, SenderID: "999", Text: "/unmute"},
		{ID: 6, SenderID: chat, Text: "hello"},
	}, chat)

	if !out.State.Muted {
		t.Fatal("mute from recipient not applied")
	}
	if cursorOf(out.State) != 8 {
		t.Fatalf("cursor want 8, got %d", cursorOf(out.State))
	}
	if diff := cmp.Diff([]Notification{{Kind: KindAck, Command: cmdMute}}, out.Acks); diff != "" {
		t.Fatalf("acks (-want +got):\n%s", diff)
	}
	if out.Seen != 3 {
		t.Fatalf("seen want 3, got %d", out.Seen)
	}
}

func TestApplyCommands_LastCommandWins(t *testing.T) {
	out := ApplyCommands(domain.DefaultState(), []domain.Command{
		{ID: 1, SenderID: chat, Text: "/mute"},
		{ID: 2, SenderID: chat, Text: "/unmute"},
	}, chat)
	if out.State.Muted || len(out.Acks) != 2 {
		t.Fatalf("unexpected: muted=%v acks=%d", out.State.Muted, len(out.Acks))
	}
	if out.Acks[1].Text("x") != ackUnmuted || out.Acks[0].Text("x") != ackMuted {
		t.Fatalf("ack texts: %q %q", out.Acks[0].Text("x"), out.Acks[1].Text("x"))
	}
}

func TestApplyCommands_ReplayDoesNotRetoggle(t *testing.T) {
	batch := []domain.Command{{ID: 10, SenderID: chat, Text: "/mute"}}
	first := ApplyCommands(domain.DefaultState(), batch, chat)

	// operator unmutes through another path, then the same batch is redelivered
	st := first.State.Clone()
	st.Muted = false
	again := ApplyCommands(st, batch, chat)

	if again.State.Muted || len(again.Acks) != 0 || again.Seen != 0 {
		t.Fatalf("replayed batch re-applied: %+v", again)
	}
	if cursorOf(again.State) != 11 {
		t.Fatalf("cursor moved on replay: %d", cursorOf(again.State))
	}
}

func TestApplyCommands_CursorNeverMovesBack(t *testing.T) {
	cur := int64(50)
	st := domain.DefaultState()
	st.CommandCursor = &cur

	out := ApplyCommands(st, []domain.Command{{ID: 3, SenderID: chat, Text: "/mute"}}, chat)
	if cursorOf(out.State) != 50 || out.State.Muted {
		t.Fatalf("stale command applied or cursor regressed: %+v", out.State)
	}

	out = ApplyCommands(st, []domain.Command{{ID: 50, SenderID: chat, Text: "/mute"}}, chat)
	if cursorOf(out.State) != 51 || !out.State.Muted {
		t.Fatalf("command at cursor must apply: %+v", out.State)
	}
}

func TestApplyCommands_EmptyBatchLeavesState(t *testing.T) {
	st := domain.DefaultState()
	out := ApplyCommands(st, nil, chat)
	if diff := cmp.Diff(st, out.State); diff != "" {
		t.Fatalf("empty batch changed state:\n%s", diff)
	}
}

func TestApplyCommands_NoRecipientIgnoresEverything(t *testing.T) {
	out := ApplyCommands(domain.DefaultState(), []domain.Command{{ID: 1, Text: "/mute"}}, "")
	if out.State.Muted {
		t.Fatal("commands must be ignored without a recipient")
	}
	if cursorOf(out.State) != 2 {
		t.Fatalf("cursor still advances, got %d", cursorOf(out.State))
	}
}
