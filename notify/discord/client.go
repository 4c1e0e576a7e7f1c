package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrNotConfigured is returned by Send when no webhook URL is set.
	ErrNotConfigured = errors.New("discord webhook not configured")
	// ErrRateLimited is returned when Discord answers 429.
	ErrRateLimited = errors.New("discord rate limit exceeded")
	// ErrDeliveryFailed is returned for transport errors and other non-2xx answers.
	ErrDeliveryFailed = errors.New("discord webhook delivery failed")
)

const (
	DefaultUsername = "Waitlist Bot"
	DefaultTimeout  = 10 * time.Second

	maxErrorBody = 512
)

// Payload is the JSON body of a Discord webhook execution. A Payload decoded from JSON keeps
// the original document and Send forwards it unchanged, so attributes this type does not model
// (embed images, urls, tts, allowed_mentions) reach Discord as the caller sent them.
type Payload struct {
	Content   string  `json:"content,omitempty"`
	Embeds    []Embed `json:"embeds,omitempty"`
	Username  string  `json:"username,omitempty"`
	AvatarURL string  `json:"avatar_url,omitempty"`

	raw json.RawMessage
}

type payloadFields Payload

func (p *Payload) UnmarshalJSON(data []byte) error {
	var fields payloadFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*p = Payload(fields)
	p.raw = append(json.RawMessage(nil), data...)
	return nil
}

// body renders the request document. Decoded payloads keep every original key; only a missing
// username or avatar_url is filled in.
func (p Payload) body() ([]byte, error) {
	if p.raw == nil {
		return json.Marshal(payloadFields(p))
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(p.raw, &doc); err != nil {
		return nil, err
	}
	for key, value := range map[string]string{"username": p.Username, "avatar_url": p.AvatarURL} {
		if value == "" {
			continue
		}
		if existing, ok := doc[key]; ok && !emptyJSONString(existing) {
			continue
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		doc[key] = encoded
	}
	return json.Marshal(doc)
}

func emptyJSONString(v json.RawMessage) bool {
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return string(v) == "null"
	}
	return s == ""
}

// Texts returns the free-form texts of p that an abuse filter should look at: the message
// content and every embed description, skipping empty ones.
func (p Payload) Texts() []string {
	texts := make([]string, 0, 1+len(p.Embeds))
	if strings.TrimSpace(p.Content) != "" {
		texts = append(texts, p.Content)
	}
	for _, e := range p.Embeds {
		if strings.TrimSpace(e.Description) != "" {
			texts = append(texts, e.Description)
		}
	}
	return texts
}

// Labels returns the short embed texts that are shown verbatim but are not free-form prose:
// titles, field names and values, author names and footers.
func (p Payload) Labels() []string {
	var labels []string
	add := func(s string) {
		if strings.TrimSpace(s) != "" {
			labels = append(labels, s)
		}
	}
	for _, e := range p.Embeds {
		add(e.Title)
		for _, f := range e.Fields {
			add(f.Name)
			add(f.Value)
		}
		if e.Author != nil {
			add(e.Author.Name)
		}
		if e.Footer != nil {
			add(e.Footer.Text)
		}
	}
	return labels
}

type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Author      *EmbedAuthor `json:"author,omitempty"`
}

type EmbedAuthor struct {
	Name    string `json:"name"`
	URL     string `json:"url,omitempty"`
	IconURL string `json:"icon_url,omitempty"`
}

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type EmbedFooter struct {
	Text string `json:"text"`
}

// Result describes one delivery attempt.
type Result struct {
	OK         bool
	StatusCode int
}

// Config configures a Client.
type Config struct {
	WebhookURL string
	Username   string
	AvatarURL  string
	Timeout    time.Duration
}

// Client posts payloads to one Discord webhook.
type Client struct {
	url       string
	username  string
	avatarURL string
	http      *http.Client
	logger    *zap.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(cl *Client) {
		if logger != nil {
			cl.logger = logger
		}
	}
}

func New(cfg Config, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	username := cfg.Username
	if username == "" {
		username = DefaultUsername
	}
	c := &Client{
		url:       strings.TrimSpace(cfg.WebhookURL),
		username:  username,
		avatarURL: cfg.AvatarURL,
		http:      &http.Client{Timeout: timeout},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether a webhook URL is set.
func (c *Client) Configured() bool {
	return c != nil && c.url != ""
}

// Send posts p to the webhook. Username and avatar default to the client's when p leaves
// them empty.
func (c *Client) Send(ctx context.Context, p Payload) (Result, error) {
	if !c.Configured() {
		return Result{}, ErrNotConfigured
	}
	if p.Username == "" {
		p.Username = c.username
	}
	if p.AvatarURL == "" {
		p.AvatarURL = c.avatarURL
	}

	body, err := p.body()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("discord webhook request failed", zap.Error(err))
		return Result{}, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()

	res := Result{StatusCode: resp.StatusCode}
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		res.OK = true
		_, _ = io.Copy(io.Discard, resp.Body)
		return res, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		c.logger.Warn("discord webhook rate limited", zap.String("retry_after", resp.Header.Get("Retry-After")))
		return res, ErrRateLimited
	default:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn("discord webhook rejected payload",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(snippet)),
		)
		return res, fmt.Errorf("%w: status %d", ErrDeliveryFailed, resp.StatusCode)
	}
}
