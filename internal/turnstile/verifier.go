// Package turnstile verifies Cloudflare Turnstile tokens.
package turnstile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"
	DefaultTimeout   = 5 * time.Second

	unknownIP = "unknown"
)

var (
	ErrNotConfigured = errors.New("turnstile secret not configured")
	ErrMissingToken  = errors.New("turnstile token missing")
	ErrRejected      = errors.New("turnstile token rejected")
	ErrUnavailable   = errors.New("turnstile verification unavailable")
)

type response struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
	Hostname   string   `json:"hostname"`
}

type Config struct {
	SecretKey string
	VerifyURL string
	Timeout   time.Duration
}

// Verifier checks tokens against the siteverify endpoint. Every failure, including transport
// errors, is returned as an error so callers fail closed.
type Verifier struct {
	secret string
	url    string
	http   *http.Client
	logger *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Verifier {
	if cfg.VerifyURL == "" {
		cfg.VerifyURL = DefaultVerifyURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{
		secret: cfg.SecretKey,
		url:    cfg.VerifyURL,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

func (v *Verifier) Verify(ctx context.Context, token, ip string) error {
	if v.secret == "" {
		return ErrNotConfigured
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrMissingToken
	}

	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if ip != "" && ip != unknownIP {
		form.Set("remoteip", ip)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	if !out.Success {
		v.logger.Info("turnstile rejected token", zap.Strings("error_codes", out.ErrorCodes))
		return fmt.Errorf("%w: %s", ErrRejected, strings.Join(out.ErrorCodes, ", "))
	}
	return nil
}
