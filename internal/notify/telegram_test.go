package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hamed0406/downwatch/internal/domain"
)

func TestNewTelegram_RequiresTokenAndChat(t *testing.T) {
	_, err := NewTelegram("", "tok", "")
	assert.Error(t, err)
	_, err = NewTelegram("", "", "42")
	assert.Error(t, err)

	tg, err := NewTelegram("", "tok", "42")
	require.NoError(t, err)
	assert.Equal(t, DefaultTelegramAPI, tg.APIBase)
}

func TestTelegram_SendPostsForm(t *testing.T) {
	var path string
	var form map[string]string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, r.ParseForm())
		form = map[string]string{
			"chat_id":                  r.PostForm.Get("chat_id"),
			"text":                     r.PostForm.Get("text"),
			"parse_mode":               r.PostForm.Get("parse_mode"),
			"disable_web_page_preview": r.PostForm.Get("disable_web_page_preview"),
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer ts.Close()

	tg, err := NewTelegram(ts.URL+"/", "123:abc", "-100")
	require.NoError(t, err)
	require.NoError(t, tg.Send(context.Background(), "🔔 Unmuted."))

	assert.Equal(t, "/bot123:abc/sendMessage", path)
	assert.Equal(t, map[string]string{
		"chat_id":                  "-100",
		"text":                     "🔔 Unmuted.",
		"parse_mode":               "Markdown",
		"disable_web_page_preview": "1",
	}, form)
}

func TestTelegram_SendNon2xx(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false,"description":"chat not found"}`, http.StatusBadRequest)
	}))
	defer ts.Close()

	tg, _ := NewTelegram(ts.URL, "t", "1")
	err := tg.Send(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestTelegram_FetchParsesUpdates(t *testing.T) {
	var offset, timeout string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset = r.URL.Query().Get("offset")
		timeout = r.URL.Query().Get("timeout")
		_, _ = w.Write([]byte(`{"ok":true,"result":[
			{"update_id":10,"message":{"chat":{"id":-100},"text":"/mute"}},
			{"update_id":11,"edited_message":{"chat":{"id":555},"text":"/unmute"}},
			{"update_id":12,"channel_post":{"chat":{"id":-100},"text":"hi"}},
			{"message":{"chat":{"id":-100},"text":"/mute"}}
		]}`))
	}))
	defer ts.Close()

	tg, _ := NewTelegram(ts.URL, "t", "-100")
	cur := int64(10)
	got, err := tg.Fetch(context.Background(), &cur)
	require.NoError(t, err)

	assert.Equal(t, "10", offset)
	assert.Equal(t, "0", timeout)
	assert.Equal(t, []domain.Command{
		{ID: 10, SenderID: "-100", Text: "/mute"},
		{ID: 11, SenderID: "555", Text: "/unmute"},
		{ID: 12},
	}, got)
}

func TestTelegram_FetchWithoutCursorOmitsOffset(t *testing.T) {
	var hasOffset bool
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasOffset = r.URL.Query()["offset"]
		_, _ = w.Write([]byte(`{"ok":true,"result":[]}`))
	}))
	defer ts.Close()

	tg, _ := NewTelegram(ts.URL, "t", "1")
	got, err := tg.Fetch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.False(t, hasOffset)
}

func TestTelegram_FetchErrors(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"not ok": func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{"ok":false}`)) },
		"garbage": func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`<html>`)) },
		"status": func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) },
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			ts := httptest.NewServer(h)
			defer ts.Close()
			tg, _ := NewTelegram(ts.URL, "t", "1")
			_, err := tg.Fetch(context.Background(), nil)
			assert.Error(t, err)
		})
	}
}

type stubNotifier struct {
	got []string
	err error
}

func (s *stubNotifier) Send(_ context.Context, text string) error {
	s.got = append(s.got, text)
	return s.err
}

func TestMulti_FansOutAndReturnsFirstError(t *testing.T) {
	first := errors.New("first")
	a := &stubNotifier{err: first}
	b := &stubNotifier{err: errors.New("second")}
	c := &stubNotifier{}

	err := Multi{a, nil, b, c}.Send(context.Background(), "msg")
	assert.ErrorIs(t, err, first)
	for _, n := range []*stubNotifier{a, b, c} {
		assert.Equal(t, []string{"msg"}, n.got)
	}
}

func TestLog_WritesMessage(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	require.NoError(t, Log{Logger: zap.New(core)}.Send(context.Background(), "✅ api recovered."))

	entries := logs.FilterMessage("notification").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "✅ api recovered.", entries[0].ContextMap()["text"])
}
