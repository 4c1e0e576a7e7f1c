package limiters

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/waitgate/internal/counter"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestTable(t *testing.T, policies map[Name]Policy, prefix string) (*miniredis.Miniredis, *Table) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	table, err := New(counter.NewRedis(rdb), policies, prefix)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return mr, table
}

func TestKeysUseDisjointNamespaces(t *testing.T) {
	_, table := newTestTable(t, DefaultPolicies(), "")

	cases := []struct {
		name  Name
		actor string
		want  string
	}{
		{SignupByIP, "1.2.3.4", "waitlist:rate:1.2.3.4"},
		{SignupByEmail, "  Alice@Example.COM ", "waitlist:email:alice@example.com"},
		{GenericEndpoint, EndpointActor("discord-webhook", "1.2.3.4"), "endpoint:discord-webhook:rate:1.2.3.4"},
		{WebhookByIP, "1.2.3.4", "webhook:ip:1.2.3.4"},
		{WebhookGlobal, "ignored", "webhook:global:rate"},
	}
	for _, tc := range cases {
		got, err := table.Key(tc.name, tc.actor)
		if err != nil {
			t.Fatalf("Key(%s) failed: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("Key(%s): want %q, got %q", tc.name, tc.want, got)
		}
	}
}

func TestKeyPrefixIsApplied(t *testing.T) {
	_, table := newTestTable(t, DefaultPolicies(), "prod:")

	got, err := table.Key(SignupByIP, "9.9.9.9")
	if err != nil {
		t.Fatalf("Key failed: %v", err)
	}
	if got != "prod:waitlist:rate:9.9.9.9" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestPoliciesAreIndependent(t *testing.T) {
	policies := DefaultPolicies()
	policies[SignupByIP] = Policy{Window: time.Minute, Limit: 1}
	_, table := newTestTable(t, policies, "")
	ctx := context.Background()

	if err := table.Consume(ctx, SignupByIP, "1.2.3.4"); err != nil {
		t.Fatalf("Consume failed: %v", err)
	}

	ipStatus, err := table.Check(ctx, SignupByIP, "1.2.3.4")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if ipStatus.Allowed {
		t.Fatal("expected ip policy exhausted")
	}

	webhookStatus, err := table.Check(ctx, WebhookByIP, "1.2.3.4")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !webhookStatus.Allowed || webhookStatus.Remaining != 9 {
		t.Fatalf("webhook policy must be untouched, got %+v", webhookStatus)
	}
}

func TestNewRequiresEveryPolicy(t *testing.T) {
	policies := DefaultPolicies()
	delete(policies, WebhookGlobal)

	if _, err := New(nil, policies, ""); !errors.Is(err, ErrMissingPolicy) {
		t.Fatalf("expected ErrMissingPolicy, got %v", err)
	}
}

func TestUnknownPolicy(t *testing.T) {
	_, table := newTestTable(t, DefaultPolicies(), "")

	if _, err := table.Check(context.Background(), Name("nope"), "x"); !errors.Is(err, ErrUnknownPolicy) {
		t.Fatalf("expected ErrUnknownPolicy, got %v", err)
	}
}

func TestCheckNamespaces(t *testing.T) {
	if err := CheckNamespaces("a:", "b:", "webhook:ip:", "webhook:ip-content:"); err != nil {
		t.Fatalf("unexpected collision: %v", err)
	}
	if err := CheckNamespaces("waitlist:", "waitlist:rate:"); !errors.Is(err, ErrNamespaceCollision) {
		t.Fatalf("expected collision, got %v", err)
	}
	if err := CheckNamespaces("x:", "x:"); !errors.Is(err, ErrNamespaceCollision) {
		t.Fatalf("expected collision for duplicates, got %v", err)
	}
}

func TestEndpointActorSanitizesName(t *testing.T) {
	if got := EndpointActor(" Discord:Webhook ", "1.1.1.1"); got != "discord-webhook:rate:1.1.1.1" {
		t.Fatalf("unexpected actor %q", got)
	}
	if got := EndpointActor("", "1.1.1.1"); got != "general:rate:1.1.1.1" {
		t.Fatalf("unexpected default actor %q", got)
	}
}
