package limiters

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/MrEthical07/waitgate/internal/counter"
	"github.com/MrEthical07/waitgate/internal/rate"
)

var (
	ErrUnknownPolicy      = errors.New("unknown limiter policy")
	ErrMissingPolicy      = errors.New("limiter policy not configured")
	ErrNamespaceCollision = errors.New("limiter namespaces collide")
)

// Name identifies one policy in the table.
type Name string

const (
	SignupByIP      Name = "signup-by-ip"
	SignupByEmail   Name = "signup-by-email"
	GenericEndpoint Name = "generic-endpoint"
	WebhookByIP     Name = "webhook-by-ip"
	WebhookGlobal   Name = "webhook-global"
)

// Policy is the static (window, limit) pair of one named limiter.
type Policy struct {
	Window time.Duration
	Limit  int
}

// DefaultPolicies returns the tuned defaults for the signup workflow.
func DefaultPolicies() map[Name]Policy {
	return map[Name]Policy{
		SignupByIP:      {Window: 60 * time.Second, Limit: 3},
		SignupByEmail:   {Window: time.Hour, Limit: 5},
		GenericEndpoint: {Window: 5 * time.Minute, Limit: 50},
		WebhookByIP:     {Window: 5 * time.Minute, Limit: 10},
		WebhookGlobal:   {Window: 60 * time.Second, Limit: 50},
	}
}

// Names returns every policy name in a stable order.
func Names() []Name {
	return []Name{SignupByIP, SignupByEmail, GenericEndpoint, WebhookByIP, WebhookGlobal}
}

var namespaces = map[Name]string{
	SignupByIP:      "waitlist:rate:",
	SignupByEmail:   "waitlist:email:",
	GenericEndpoint: "endpoint:",
	WebhookByIP:     "webhook:ip:",
	WebhookGlobal:   "webhook:global:rate",
}

type entry struct {
	policy  Policy
	prefix  string
	limiter *rate.Limiter
}

// Table is the immutable set of named limiters.
type Table struct {
	entries map[Name]entry
}

// New builds a table over store. keyPrefix is prepended to every namespace so several
// deployments can share one Redis.
func New(store counter.Store, policies map[Name]Policy, keyPrefix string, opts ...rate.Option) (*Table, error) {
	t := &Table{entries: make(map[Name]entry, len(namespaces))}

	for _, name := range Names() {
		p, ok := policies[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingPolicy, name)
		}
		l, err := rate.New(store, rate.Config{Window: p.Window, Limit: p.Limit}, opts...)
		if err != nil {
			return nil, fmt.Errorf("policy %s: %w", name, err)
		}
		t.entries[name] = entry{policy: p, prefix: keyPrefix + namespaces[name], limiter: l}
	}

	if err := CheckNamespaces(t.Prefixes()...); err != nil {
		return nil, err
	}

	return t, nil
}

// Prefixes returns the effective key namespaces of every policy.
func (t *Table) Prefixes() []string {
	out := make([]string, 0, len(t.entries))
	for _, name := range Names() {
		out = append(out, t.entries[name].prefix)
	}
	return out
}

// Policy returns the configuration of name.
func (t *Table) Policy(name Name) (Policy, bool) {
	e, ok := t.entries[name]
	return e.policy, ok
}

// Key builds the store key for actor under name.
func (t *Table) Key(name Name, actor string) (string, error) {
	e, ok := t.entries[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownPolicy, name)
	}
	switch name {
	case WebhookGlobal:
		return e.prefix, nil
	case SignupByEmail:
		return e.prefix + NormalizeEmail(actor), nil
	default:
		return e.prefix + strings.TrimSpace(actor), nil
	}
}

// Check reports whether actor may spend one more unit of name without consuming it.
func (t *Table) Check(ctx context.Context, name Name, actor string) (rate.Status, error) {
	e, key, err := t.lookup(name, actor)
	if err != nil {
		return rate.Status{}, err
	}
	return e.limiter.Check(ctx, key)
}

// Consume records one unit of name for actor.
func (t *Table) Consume(ctx context.Context, name Name, actor string) error {
	e, key, err := t.lookup(name, actor)
	if err != nil {
		return err
	}
	return e.limiter.Consume(ctx, key)
}

func (t *Table) lookup(name Name, actor string) (entry, string, error) {
	key, err := t.Key(name, actor)
	if err != nil {
		return entry{}, "", err
	}
	return t.entries[name], key, nil
}

// EndpointActor builds the generic-endpoint actor for an endpoint name and client IP.
func EndpointActor(endpoint, ip string) string {
	endpoint = strings.ToLower(strings.TrimSpace(endpoint))
	if endpoint == "" {
		endpoint = "general"
	}
	endpoint = strings.ReplaceAll(endpoint, ":", "-")
	return endpoint + ":rate:" + strings.TrimSpace(ip)
}

// NormalizeEmail lowercases and trims an email used as an actor key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CheckNamespaces reports an error when any prefix is a prefix of another.
func CheckNamespaces(prefixes ...string) error {
	sorted := append([]string(nil), prefixes...)
	sort.Strings(sorted)
	for i := 0; i < len(sorted); i++ {
		if sorted[i] == "" {
			return fmt.Errorf("%w: empty namespace", ErrNamespaceCollision)
		}
		for j := i + 1; j < len(sorted); j++ {
			if strings.HasPrefix(sorted[j], sorted[i]) {
				return fmt.Errorf("%w: %q and %q", ErrNamespaceCollision, sorted[i], sorted[j])
			}
		}
	}
	return nil
}
