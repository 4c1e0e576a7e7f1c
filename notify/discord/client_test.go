package discord

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendPostsJSONWithDefaults(t *testing.T) {
	var got Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(Config{WebhookURL: srv.URL, AvatarURL: "https://example.com/a.png"})
	res, err := c.Send(context.Background(), Payload{Content: "hello"})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	assert.Equal(t, "hello", got.Content)
	assert.Equal(t, DefaultUsername, got.Username)
	assert.Equal(t, "https://example.com/a.png", got.AvatarURL)
}

func TestSendMaps429ToRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	res, err := New(Config{WebhookURL: srv.URL}).Send(context.Background(), Payload{Content: "x"})
	require.ErrorIs(t, err, ErrRateLimited)
	assert.False(t, res.OK)
	assert.Equal(t, http.StatusTooManyRequests, res.StatusCode)
}

func TestSendMapsOtherStatusToDeliveryFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad embed", http.StatusBadRequest)
	}))
	defer srv.Close()

	res, err := New(Config{WebhookURL: srv.URL}).Send(context.Background(), Payload{Content: "x"})
	require.ErrorIs(t, err, ErrDeliveryFailed)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestSendTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(Config{WebhookURL: url, Timeout: time.Second}).Send(context.Background(), Payload{Content: "x"})
	require.ErrorIs(t, err, ErrDeliveryFailed)
}

func TestSendNotConfigured(t *testing.T) {
	c := New(Config{WebhookURL: "  "})
	assert.False(t, c.Configured())
	_, err := c.Send(context.Background(), Payload{Content: "x"})
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestPayloadTexts(t *testing.T) {
	p := Payload{
		Content: "top",
		Embeds: []Embed{
			{Title: "no description"},
			{Description: "first"},
			{Description: "   "},
			{Description: "second"},
		},
	}
	assert.Equal(t, []string{"top", "first", "second"}, p.Texts())
	assert.Empty(t, Payload{}.Texts())
}

func TestSendForwardsDecodedPayloadUnchanged(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	in := `{"content":"hi","tts":true,"allowed_mentions":{"parse":[]},
		"embeds":[{"title":"T","url":"https://example.com/post","image":{"url":"https://example.com/i.png"},
		"author":{"name":"Ada","url":"https://example.com/ada"}}]}`
	var p Payload
	require.NoError(t, json.Unmarshal([]byte(in), &p))

	_, err := New(Config{WebhookURL: srv.URL}).Send(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, true, got["tts"])
	assert.Equal(t, map[string]any{"parse": []any{}}, got["allowed_mentions"])
	assert.Equal(t, DefaultUsername, got["username"])
	embed := got["embeds"].([]any)[0].(map[string]any)
	assert.Equal(t, "https://example.com/post", embed["url"])
	assert.Equal(t, map[string]any{"url": "https://example.com/i.png"}, embed["image"])
	assert.Equal(t, map[string]any{"name": "Ada", "url": "https://example.com/ada"}, embed["author"])
}

func TestSendKeepsCallerUsername(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	var p Payload
	require.NoError(t, json.Unmarshal([]byte(`{"content":"hi","username":"Release Bot"}`), &p))
	_, err := New(Config{WebhookURL: srv.URL}).Send(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "Release Bot", got["username"])
}

func TestPayloadLabels(t *testing.T) {
	p := Payload{
		Content: "top",
		Embeds: []Embed{{
			Title:       "Title",
			Description: "prose",
			Fields:      []EmbedField{{Name: "Key", Value: "Value"}, {Name: " ", Value: ""}},
			Author:      &EmbedAuthor{Name: "Ada"},
			Footer:      &EmbedFooter{Text: "Footer"},
		}},
	}
	assert.Equal(t, []string{"Title", "Key", "Value", "Ada", "Footer"}, p.Labels())
	assert.Empty(t, Payload{Content: "x"}.Labels())
}

func TestSignupEmbed(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	e := SignupEmbed("ada@example.com", 42, now)
	assert.Equal(t, signupTitle, e.Title)
	assert.Contains(t, e.Description, "#42")
	assert.Equal(t, colorGreen, e.Color)
	require.Len(t, e.Fields, 3)
	assert.Equal(t, "ada@example.com", e.Fields[0].Value)
	assert.Equal(t, "42", e.Fields[1].Value)
	assert.Equal(t, "2026-03-01T12:00:00Z", e.Timestamp)
	require.NotNil(t, e.Footer)
	assert.Equal(t, footerText, e.Footer.Text)

	unknown := SignupEmbed("ada@example.com", 0, now)
	assert.Equal(t, "Unknown", unknown.Fields[1].Value)
	assert.False(t, strings.Contains(unknown.Description, "#"))
}
