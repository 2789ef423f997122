package service

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Kind is the closed set of input categories Validate knows how to check.
// There is intentionally no default branch: an unknown kind fails.
type Kind int

const (
	KindEmail Kind = iota
	KindUsername
	KindPassword
	KindFreeText
	KindPrice
)

const (
	maxFreeTextLen = 1000
	maxPriceValue  = 100_000_000

	// auditInputLimit bounds how much of a hostile input is retained in the
	// activity log, so the log neither grows unbounded nor re-stores the
	// full attack payload.
	auditInputLimit = 100
)

var (
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9가-힣]{2,20}$`)

	// RE2 has no lookahead, so password strength is a set of independent
	// checks instead of one composite expression.
	passwordLetter  = regexp.MustCompile(`[A-Za-z]`)
	passwordDigit   = regexp.MustCompile(`[0-9]`)
	passwordSpecial = regexp.MustCompile(`[@$!%*#?&]`)

	// injectionPatterns is the fixed list of script-injection shapes.
	// Matching any of them rejects the input outright.
	injectionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)<script`),
		regexp.MustCompile(`(?i)javascript\s*:`),
		regexp.MustCompile(`(?i)on\w+\s*=`),
		regexp.MustCompile(`(?i)data\s*:`),
		regexp.MustCompile(`(?i)<iframe`),
		regexp.MustCompile(`(?i)<embed`),
		regexp.MustCompile(`(?i)<object`),
		regexp.MustCompile(`(?i)<svg`),
		regexp.MustCompile(`(?i)document\.`),
		regexp.MustCompile(`(?i)window\.`),
		regexp.MustCompile(`(?i)eval\(`),
		regexp.MustCompile(`(?i)setTimeout\(`),
		regexp.MustCompile(`(?i)setInterval\(`),
		regexp.MustCompile(`(?i)new\s+Function\(`),
	}

	// sqlInjectionPatterns covers the classic probing shapes: bare SQL verbs,
	// comment markers and tautologies.
	sqlInjectionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(select|insert|update|delete|drop|union|exec|declare)\b`),
		regexp.MustCompile(`--`),
		regexp.MustCompile(`/\*.*?\*/`),
		regexp.MustCompile(`(?i)\b(and|or)\s+\d+\s*=\s*\d+`),
	}

	htmlEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#39;",
	)
)

// Sanitize escapes the five HTML-significant characters to their entities.
// It is applied before any untrusted text is persisted or displayed; callers
// must not sanitize twice.
func Sanitize(s string) string {
	return htmlEscaper.Replace(s)
}

// Validator performs format checks and injection detection on all
// user-supplied text. Detected attacks are recorded in the audit log.
type Validator struct {
	audit *AuditLog
}

// NewValidator creates a new Validator.
func NewValidator(audit *AuditLog) *Validator {
	return &Validator{audit: audit}
}

// ValidEmail reports whether s looks like an email address.
func (v *Validator) ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// ValidUsername reports whether s is 2-20 characters of letters, digits,
// or Hangul.
func (v *Validator) ValidUsername(s string) bool {
	return usernamePattern.MatchString(s)
}

// StrongPassword reports whether s is at least 8 characters and contains a
// letter, a digit, and one of the fixed special characters.
func (v *Validator) StrongPassword(s string) bool {
	return len(s) >= 8 &&
		passwordLetter.MatchString(s) &&
		passwordDigit.MatchString(s) &&
		passwordSpecial.MatchString(s)
}

// DetectInjection reports whether s matches any known script-injection
// pattern. The first match wins.
func (v *Validator) DetectInjection(s string) bool {
	if s == "" {
		return false
	}
	for _, p := range injectionPatterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// DetectSQLInjection reports whether s matches any known SQL probing
// pattern.
func (v *Validator) DetectSQLInjection(s string) bool {
	if s == "" {
		return false
	}
	for _, p := range sqlInjectionPatterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// ScanText runs both injection detectors over free text, auditing any hit.
// It returns true if the text is hostile.
func (v *Validator) ScanText(ctx context.Context, s string) bool {
	if v.DetectInjection(s) {
		v.recordAttempt(ctx, "xss_attempt", s)
		return true
	}
	if v.DetectSQLInjection(s) {
		v.recordAttempt(ctx, "sqli_attempt", s)
		return true
	}
	return false
}

// Validate dispatches to the format check for the given kind. A detected
// script-injection attempt short-circuits to false regardless of kind and
// appends exactly one security audit entry.
func (v *Validator) Validate(ctx context.Context, input string, kind Kind) bool {
	if input == "" {
		return false
	}

	if v.DetectInjection(input) {
		v.recordAttempt(ctx, "xss_attempt", input)
		return false
	}

	switch kind {
	case KindEmail:
		return v.ValidEmail(input)
	case KindUsername:
		return v.ValidUsername(input)
	case KindPassword:
		return v.StrongPassword(input)
	case KindFreeText:
		n := utf8.RuneCountInString(strings.TrimSpace(input))
		return n >= 1 && n <= maxFreeTextLen
	case KindPrice:
		n, err := strconv.ParseFloat(strings.TrimSpace(input), 64)
		return err == nil && n >= 0 && n <= maxPriceValue
	}
	return false
}

func (v *Validator) recordAttempt(ctx context.Context, attemptType, input string) {
	if err := v.audit.Append(ctx, "security_alert", map[string]any{
		"type":  attemptType,
		"input": truncateRunes(input, auditInputLimit),
	}); err != nil {
		slog.Error("record injection attempt", "error", err)
	}
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
