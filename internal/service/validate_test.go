package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/hanbit-dev/fleamart/internal/service"
)

func TestValidator_ValidEmail(t *testing.T) {
	e := newTestEnv(t)

	tests := []struct {
		email string
		want  bool
	}{
		{"user@example.com", true},
		{"a@b.co", true},
		{"no-at-sign", false},
		{"two@@example.com", false},
		{"spaces in@example.com", false},
		{"user@nodot", false},
		{"", false},
	}
	for _, tc := range tests {
		if got := e.valid.ValidEmail(tc.email); got != tc.want {
			t.Errorf("ValidEmail(%q) = %v, want %v", tc.email, got, tc.want)
		}
	}
}

func TestValidator_ValidUsername(t *testing.T) {
	e := newTestEnv(t)

	tests := []struct {
		name string
		want bool
	}{
		{"minho", true},
		{"User99", true},
		{"김철수", true},
		{"a", false},                          // too short
		{strings.Repeat("x", 21), false},      // too long
		{"space name", false},                 // whitespace
		{"tag<name>", false},                  // markup
		{"김철수99ok", true},                     // mixed scripts
		{strings.Repeat("가", 20), true},       // max length Hangul
	}
	for _, tc := range tests {
		if got := e.valid.ValidUsername(tc.name); got != tc.want {
			t.Errorf("ValidUsername(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestValidator_StrongPassword(t *testing.T) {
	e := newTestEnv(t)

	tests := []struct {
		password string
		want     bool
	}{
		{"passw0rd!", true},
		{"short1!", false},      // under 8 chars
		{"password!", false},    // no digit
		{"12345678!", false},    // no letter
		{"password1", false},    // no special character
		{"Abcdef1@", true},
	}
	for _, tc := range tests {
		if got := e.valid.StrongPassword(tc.password); got != tc.want {
			t.Errorf("StrongPassword(%q) = %v, want %v", tc.password, got, tc.want)
		}
	}
}

func TestValidator_DetectInjection(t *testing.T) {
	e := newTestEnv(t)

	hostile := []string{
		"<script>alert(1)</script>",
		"<SCRIPT src=x>",
		"javascript:alert(1)",
		"javascript : alert(1)",
		"<img onerror=alert(1)>",
		"onclick = doEvil",
		"data:text/html;base64,xxx",
		"<iframe src=x>",
		"<embed src=x>",
		"<object data=x>",
		"<svg/onload=1>",
		"document.cookie",
		"window.location",
		"eval(payload)",
		"setTimeout(fn, 0)",
		"setInterval(fn, 0)",
		"new Function('x')",
	}
	for _, input := range hostile {
		if !e.valid.DetectInjection(input) {
			t.Errorf("DetectInjection(%q) = false, want true", input)
		}
	}

	benign := []string{
		"a perfectly normal description",
		"selling my old keyboard, barely used",
		"한정판 스니커즈 새상품",
		"",
	}
	for _, input := range benign {
		if e.valid.DetectInjection(input) {
			t.Errorf("DetectInjection(%q) = true, want false", input)
		}
	}
}

func TestValidator_DetectSQLInjection(t *testing.T) {
	e := newTestEnv(t)

	hostile := []string{
		"' OR 1=1",
		"1; DROP TABLE users",
		"UNION SELECT password FROM users",
		"admin'--",
		"/* comment */ probe",
	}
	for _, input := range hostile {
		if !e.valid.DetectSQLInjection(input) {
			t.Errorf("DetectSQLInjection(%q) = false, want true", input)
		}
	}

	if e.valid.DetectSQLInjection("a plain sentence about furniture") {
		t.Error("DetectSQLInjection flagged benign text")
	}
}

func TestValidator_Validate_InjectionShortCircuits(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	input := "<script>document.write('x')</script>"
	if e.valid.Validate(ctx, input, service.KindFreeText) {
		t.Fatal("expected hostile free text to be rejected")
	}

	entries, err := e.audit.Entries(ctx)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	var alerts int
	for _, entry := range entries {
		if entry.Action == "security_alert" {
			alerts++
			if entry.Data["type"] != "xss_attempt" {
				t.Fatalf("expected xss_attempt, got %v", entry.Data["type"])
			}
			logged, _ := entry.Data["input"].(string)
			if len([]rune(logged)) > 100 {
				t.Fatalf("audit retained %d chars of hostile input", len([]rune(logged)))
			}
		}
	}
	if alerts != 1 {
		t.Fatalf("expected exactly one security_alert entry, got %d", alerts)
	}
}

func TestValidator_Validate_LongHostileInputTruncated(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	input := "<script>" + strings.Repeat("A", 500)
	if e.valid.Validate(ctx, input, service.KindFreeText) {
		t.Fatal("expected rejection")
	}

	entries, err := e.audit.Entries(ctx)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	last := entries[len(entries)-1]
	logged, _ := last.Data["input"].(string)
	if got := len([]rune(logged)); got != 100 {
		t.Fatalf("expected 100 retained chars, got %d", got)
	}
}

func TestValidator_Validate_Kinds(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input string
		kind  service.Kind
		want  bool
	}{
		{"valid email", "a@b.com", service.KindEmail, true},
		{"bad email", "nope", service.KindEmail, false},
		{"valid username", "민수", service.KindUsername, true},
		{"valid password", "passw0rd!", service.KindPassword, true},
		{"free text", "hello there", service.KindFreeText, true},
		{"free text blank", "   ", service.KindFreeText, false},
		{"free text too long", strings.Repeat("x", 1001), service.KindFreeText, false},
		{"price zero", "0", service.KindPrice, true},
		{"price max", "100000000", service.KindPrice, true},
		{"price above max", "100000001", service.KindPrice, false},
		{"price not a number", "cheap", service.KindPrice, false},
		{"unknown kind", "anything", service.Kind(99), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := e.valid.Validate(ctx, tc.input, tc.kind); got != tc.want {
				t.Fatalf("Validate(%q, %v) = %v, want %v", tc.input, tc.kind, got, tc.want)
			}
		})
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`<b>&"'</b>`, "&lt;b&gt;&amp;&quot;&#39;&lt;/b&gt;"},
		{"plain text", "plain text"},
		{"", ""},
		{"a < b && c > d", "a &lt; b &amp;&amp; c &gt; d"},
	}
	for _, tc := range tests {
		if got := service.Sanitize(tc.in); got != tc.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
