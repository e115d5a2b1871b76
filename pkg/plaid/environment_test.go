package plaid

import (
	"errors"
	"testing"
)

func TestParseEnvironment(t *testing.T) {
	tests := []struct {
		raw  string
		want Environment
	}{
		{raw: "sandbox", want: Sandbox},
		{raw: "SANDBOX", want: Sandbox},
		{raw: " Development ", want: Development},
		{raw: "production", want: Production},
	}
	for _, tt := range tests {
		got, err := ParseEnvironment(tt.raw)
		if err != nil {
			t.Fatalf("ParseEnvironment(%q): %v", tt.raw, err)
		}
		if got != tt.want {
			t.Fatalf("ParseEnvironment(%q) = %s, want %s", tt.raw, got, tt.want)
		}
	}
}

func TestParseEnvironmentRejectsUnknown(t *testing.T) {
	for _, raw := range []string{"", "staging", "prod", "sandbox2"} {
		if _, err := ParseEnvironment(raw); !errors.Is(err, ErrInvalidEnvironment) {
			t.Fatalf("ParseEnvironment(%q): expected ErrInvalidEnvironment, got %v", raw, err)
		}
	}
}

func TestEnvironmentBaseURLsAreDistinct(t *testing.T) {
	seen := map[string]Environment{}
	for _, env := range []Environment{Sandbox, Development, Production} {
		url := env.BaseURL()
		if url == "" {
			t.Fatalf("%s has no base url", env)
		}
		if other, dup := seen[url]; dup {
			t.Fatalf("%s and %s share base url %s", env, other, url)
		}
		seen[url] = env
	}
	if Environment(0).BaseURL() != "" {
		t.Fatal("zero environment must not resolve to a host")
	}
}

func TestEnvironmentTextRoundTrip(t *testing.T) {
	var env Environment
	if err := env.UnmarshalText([]byte("Production")); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if env != Production {
		t.Fatalf("expected production, got %s", env)
	}
	text, err := env.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}
	if string(text) != "production" {
		t.Fatalf("unexpected text %q", text)
	}

	if err := env.UnmarshalText([]byte("qa")); !errors.Is(err, ErrInvalidEnvironment) {
		t.Fatalf("expected ErrInvalidEnvironment, got %v", err)
	}
	if env != Production {
		t.Fatalf("failed unmarshal must not modify the receiver, got %s", env)
	}
	if _, err := Environment(9).MarshalText(); err == nil {
		t.Fatal("expected error marshaling invalid environment")
	}
}
