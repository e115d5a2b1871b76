package env

import "testing"

func TestGetTrimsAndFallsBack(t *testing.T) {
	t.Setenv("PLAIDBRIDGE_ENV_TEST", "  value ")
	if got := Get("PLAIDBRIDGE_ENV_TEST", "fallback"); got != "value" {
		t.Fatalf("unexpected %q", got)
	}
	t.Setenv("PLAIDBRIDGE_ENV_TEST", "   ")
	if got := Get("PLAIDBRIDGE_ENV_TEST", "fallback"); got != "fallback" {
		t.Fatalf("blank values should fall back, got %q", got)
	}
}

func TestFirst(t *testing.T) {
	t.Setenv("PLAIDBRIDGE_ENV_A", "")
	t.Setenv("PLAIDBRIDGE_ENV_B", "b")
	if got := First("PLAIDBRIDGE_ENV_A", "PLAIDBRIDGE_ENV_B"); got != "b" {
		t.Fatalf("unexpected %q", got)
	}
	if got := First("PLAIDBRIDGE_ENV_A"); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestBool(t *testing.T) {
	t.Setenv("PLAIDBRIDGE_ENV_FLAG", "true")
	if !Bool("PLAIDBRIDGE_ENV_FLAG", false) {
		t.Fatal("expected true")
	}
	t.Setenv("PLAIDBRIDGE_ENV_FLAG", "maybe")
	if !Bool("PLAIDBRIDGE_ENV_FLAG", true) {
		t.Fatal("unparseable values should return the fallback")
	}
}
