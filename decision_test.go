package waitgate

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRetryAfterSecondsRoundsUp(t *testing.T) {
	d := Decision{Reason: ReasonIPRateLimited, RetryAfter: 1500 * time.Millisecond}
	if got := d.RetryAfterSeconds(); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
}

func TestRetryAfterSecondsFloorsQuotaAtOne(t *testing.T) {
	d := Decision{Reason: ReasonEmailRateLimited}
	if got := d.RetryAfterSeconds(); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
}

func TestRetryAfterSecondsZeroOutsideQuota(t *testing.T) {
	for _, d := range []Decision{
		allow(),
		{Reason: ReasonInvalidFormat, RetryAfter: time.Minute},
		{Reason: ReasonStoreUnavailable},
		{Reason: ReasonBotCheckFailed},
	} {
		if got := d.RetryAfterSeconds(); got != 0 {
			t.Fatalf("%s: expected 0, got %d", d.Reason, got)
		}
	}
}

func TestDenyComputesRetryFromResetAt(t *testing.T) {
	now := time.Unix(1_000, 0)
	d := deny(ReasonIPRateLimited, now.Add(42*time.Second), now, PolicySignupByIP)
	if d.Allowed || d.RetryAfter != 42*time.Second || d.RetryAfterSeconds() != 42 {
		t.Fatalf("unexpected decision %+v", d)
	}

	d = deny(ReasonIPRateLimited, now.Add(-time.Second), now, PolicySignupByIP)
	if d.RetryAfter != 0 || d.RetryAfterSeconds() != 1 {
		t.Fatalf("past reset must still report one second, got %+v", d)
	}

	d = deny(ReasonTooLong, now.Add(time.Minute), now, "")
	if !d.ResetAt.IsZero() {
		t.Fatal("validation rejections carry no reset time")
	}
}

func TestDecisionErrMapsToSentinels(t *testing.T) {
	cases := []struct {
		reason ReasonCode
		want   error
	}{
		{ReasonInvalidFormat, ErrInvalidInput},
		{ReasonTooLong, ErrInvalidInput},
		{ReasonSuspiciousPattern, ErrSuspiciousInput},
		{ReasonIPRateLimited, ErrRateLimited},
		{ReasonGlobalRateLimited, ErrRateLimited},
		{ReasonEndpointRateLimited, ErrRateLimited},
		{ReasonContentSpamGlobal, ErrContentSpam},
		{ReasonContentSpamActor, ErrContentSpam},
		{ReasonBotCheckFailed, ErrBotCheckFailed},
		{ReasonStoreUnavailable, ErrStoreUnavailable},
	}
	for _, tc := range cases {
		if err := (Decision{Reason: tc.reason}).Err(); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.reason, tc.want, err)
		}
	}
	if err := allow().Err(); err != nil {
		t.Fatalf("allowed decision must not carry an error, got %v", err)
	}
}

func TestDecisionMessageReportsMinutes(t *testing.T) {
	d := Decision{Reason: ReasonIPRateLimited, RetryAfter: 90 * time.Second}
	if msg := d.Message(); !strings.Contains(msg, "2 minutes") {
		t.Fatalf("unexpected message %q", msg)
	}
	d = Decision{Reason: ReasonEmailRateLimited, RetryAfter: 10 * time.Second}
	if msg := d.Message(); !strings.Contains(msg, "1 minute.") {
		t.Fatalf("unexpected message %q", msg)
	}
}
