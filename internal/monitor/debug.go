package monitor

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

const (
	debugMaxLen   = 3800
	debugKeepLen  = 3700
	debugTruncTag = "\n...(truncated)```"
)

// DebugMessage renders payload as a fenced JSON block for the chat channel,
// cut down when it would exceed the platform's message size.
func DebugMessage(httpStatus int, payload any) string {
	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		body = []byte(fmt.Sprintf("%q", err.Error()))
	}
	msg := fmt.Sprintf("🧪 downwatch debug (HTTP %d)\n```%s```", httpStatus, body)
	if len(msg) <= debugMaxLen {
		return msg
	}
	cut := debugKeepLen
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut] + debugTruncTag
}
