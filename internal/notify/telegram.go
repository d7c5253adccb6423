package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hamed0406/downwatch/internal/domain"
)

const DefaultTelegramAPI = "https://api.telegram.org"

// Telegram talks to the Bot API: sendMessage for alerts, getUpdates for
// inbound /mute and /unmute commands.
type Telegram struct {
	APIBase string
	Token   string
	ChatID  string
	Client  *http.Client
}

func NewTelegram(apiBase, token, chatID string) (*Telegram, error) {
	if token == "" || chatID == "" {
		return nil, errors.New("telegram: bot token and chat id are both required")
	}
	if apiBase == "" {
		apiBase = DefaultTelegramAPI
	}
	return &Telegram{
		APIBase: strings.TrimRight(apiBase, "/"),
		Token:   token,
		ChatID:  chatID,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (t *Telegram) endpoint(method string) string {
	return t.APIBase + "/bot" + url.PathEscape(t.Token) + "/" + method
}

func (t *Telegram) Send(ctx context.Context, text string) error {
	form := url.Values{
		"chat_id":                  {t.ChatID},
		"text":                     {text},
		"parse_mode":               {"Markdown"},
		"disable_web_page_preview": {"1"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint("sendMessage"), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram send: status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type tgUpdates struct {
	OK     bool       `json:"ok"`
	Result []tgUpdate `json:"result"`
}

type tgUpdate struct {
	UpdateID      *int64     `json:"update_id"`
	Message       *tgMessage `json:"message"`
	EditedMessage *tgMessage `json:"edited_message"`
}

type tgMessage struct {
	Chat struct {
		ID json.Number `json:"id"`
	} `json:"chat"`
	Text string `json:"text"`
}

// Fetch polls getUpdates without long-polling. Updates that carry no
// message still come back (with empty text) so the caller can move its
// cursor past them.
func (t *Telegram) Fetch(ctx context.Context, cursor *int64) ([]domain.Command, error) {
	q := url.Values{"timeout": {"0"}}
	if cursor != nil && *cursor > 0 {
		q.Set("offset", strconv.FormatInt(*cursor, 10))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint("getUpdates")+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("telegram request: %w", err)
	}
	resp, err := t.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram updates: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("telegram updates: status %d", resp.StatusCode)
	}

	var payload tgUpdates
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("telegram updates: decode: %w", err)
	}
	if !payload.OK {
		return nil, errors.New("telegram updates: ok=false")
	}

	out := make([]domain.Command, 0, len(payload.Result))
	for _, u := range payload.Result {
		if u.UpdateID == nil {
			continue
		}
		cmd := domain.Command{ID: *u.UpdateID}
		msg := u.Message
		if msg == nil {
			msg = u.EditedMessage
		}
		if msg != nil {
			cmd.SenderID = msg.Chat.ID.String()
			cmd.Text = msg.Text
		}
		out = append(out, cmd)
	}
	return out, nil
}
