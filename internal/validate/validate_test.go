package validate

import (
	"strings"
	"testing"
)

func TestEmail(t *testing.T) {
	r := Default()

	cases := []struct {
		email string
		want  Reason
	}{
		{"alice@example.com", OK},
		{"  Bob.Smith+news@mail.example.org ", OK},
		{"", InvalidFormat},
		{"not-an-email", InvalidFormat},
		{"a@b@c.com", InvalidFormat},
		{"alice@-example.com", InvalidFormat},
		{"tester@example.com", SuspiciousPattern},
		{"FakeUser@example.com", SuspiciousPattern},
		{"temporary@example.com", SuspiciousPattern},
		{"alice@freebies.tk", SuspiciousPattern},
		{"alice@domain.ML", SuspiciousPattern},
		{strings.Repeat("a", 250) + "@example.com", TooLong},
	}
	for _, tc := range cases {
		if got := r.Email(tc.email); got != tc.want {
			t.Fatalf("Email(%q): want %q, got %q", tc.email, tc.want, got)
		}
	}
}

func TestContent(t *testing.T) {
	r := Default()

	cases := []struct {
		text string
		want Reason
	}{
		{"Someone just joined the waitlist!", OK},
		{"   ", InvalidFormat},
		{strings.Repeat("x", 2001), TooLong},
		{strings.Repeat("é", 2000), OK},
		{"visit https://promo.tk now", SuspiciousPattern},
		{"You are a WINNER", SuspiciousPattern},
		{"click here for details", SuspiciousPattern},
		{"hey @everyone", SuspiciousPattern},
		{"my cat is urgently hungry", OK},
	}
	for _, tc := range cases {
		if got := r.Content(tc.text); got != tc.want {
			t.Fatalf("Content(%q): want %q, got %q", tc.text, tc.want, got)
		}
	}
}

func TestExtraPatterns(t *testing.T) {
	r, err := Compile(Options{ExtraEmailPatterns: []string{`(?i)@blocked\.example$`}})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if got := r.Email("alice@blocked.example"); got != SuspiciousPattern {
		t.Fatalf("expected extra pattern to match, got %q", got)
	}
}

func TestCompileRejectsBadPattern(t *testing.T) {
	if _, err := Compile(Options{ExtraContentPatterns: []string{"("}}); err == nil {
		t.Fatal("expected compile error")
	}
}

func TestMaxLengthOverrides(t *testing.T) {
	r, err := Compile(Options{MaxContentLength: 10})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if got := r.Content("hello world!"); got != TooLong {
		t.Fatalf("expected too long, got %q", got)
	}
}
