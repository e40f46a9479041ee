package tileapi

import "testing"

func TestParseSetCookiesMultiValue(t *testing.T) {
	t.Parallel()

	got := ParseSetCookies([]string{
		"session=abc123; Path=/; HttpOnly",
		"csrf=tok; Secure; SameSite=Lax",
	})
	want := "session=abc123; csrf=tok"
	if got != want {
		t.Fatalf("ParseSetCookies = %q, want %q", got, want)
	}
}

func TestParseSetCookiesCoalescedString(t *testing.T) {
	t.Parallel()

	// Some transports join multiple Set-Cookie lines with commas. The comma
	// inside the Expires attribute must not produce a bogus entry.
	raw := "session=abc123; Expires=Wed, 21 Oct 2015 07:28:00 GMT; Path=/, csrf=tok; Secure"
	got := ParseSetCookies([]string{raw})
	want := "session=abc123; csrf=tok"
	if got != want {
		t.Fatalf("ParseSetCookies = %q, want %q", got, want)
	}
}

func TestParseSetCookiesPreservesOrder(t *testing.T) {
	t.Parallel()

	got := ParseSetCookies([]string{"b=2", "a=1", "c=3"})
	if got != "b=2; a=1; c=3" {
		t.Fatalf("expected encounter order preserved, got %q", got)
	}
}

func TestParseSetCookiesEmptyInput(t *testing.T) {
	t.Parallel()

	if got := ParseSetCookies(nil); got != "" {
		t.Fatalf("expected empty string for nil input, got %q", got)
	}
	if got := ParseSetCookies([]string{""}); got != "" {
		t.Fatalf("expected empty string for blank input, got %q", got)
	}
}

func TestParseSetCookiesSingleCookieNoAttributes(t *testing.T) {
	t.Parallel()

	if got := ParseSetCookies([]string{"session=abc123"}); got != "session=abc123" {
		t.Fatalf("unexpected output: %q", got)
	}
}
