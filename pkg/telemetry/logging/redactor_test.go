package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"mercator-hq/custodian/pkg/config"
)

func TestNewRedactor(t *testing.T) {
	tests := []struct {
		name           string
		customPatterns []config.RedactPattern
		wantPatterns   int
	}{
		{name: "built-in patterns only", wantPatterns: 4},
		{
			name:           "with custom pattern",
			customPatterns: []config.RedactPattern{{Name: "case", Pattern: `CASE-\d+`, Replacement: "CASE-***"}},
			wantPatterns:   5,
		},
		{
			name:           "invalid custom pattern skipped",
			customPatterns: []config.RedactPattern{{Name: "invalid", Pattern: "[unclosed", Replacement: "***"}},
			wantPatterns:   4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewRedactor(tt.customPatterns).PatternCount(); got != tt.wantPatterns {
				t.Errorf("PatternCount() = %d, want %d", got, tt.wantPatterns)
			}
		})
	}
}

func TestRedactor_RedactString(t *testing.T) {
	redactor := NewRedactor([]config.RedactPattern{{Name: "case", Pattern: `CASE-\d+`, Replacement: "CASE-***"}})

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "email", input: "approved by jane.doe@example.com", want: "approved by j***@example.com"},
		{name: "two emails", input: "a@x.io and bob@y.org", want: "a***@x.io and b***@y.org"},
		{name: "bearer token", input: "Authorization: Bearer abc.def-123", want: "Authorization: Bearer ***"},
		{name: "api key", input: "api_key=secret123, next", want: "api_key=***, next"},
		{name: "password", input: "password=hunter2", want: "password: ***"},
		{name: "custom pattern", input: "hold for CASE-2024", want: "hold for CASE-***"},
		{name: "no match", input: "policy pol-1 executed", want: "policy pol-1 executed"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := redactor.RedactString(tt.input); got != tt.want {
				t.Errorf("RedactString(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRedactor_RedactAttr(t *testing.T) {
	redactor := NewRedactor(nil)

	tests := []struct {
		name string
		attr slog.Attr
		want string
	}{
		{name: "sensitive key masked", attr: slog.String("api_key", "sk-1234567"), want: "sk-1***"},
		{name: "short secret", attr: slog.String("token", "abc"), want: "***"},
		{name: "sensitive non-string", attr: slog.Int("secret", 42), want: "***"},
		{name: "plain value kept", attr: slog.String("policy_id", "pol-1"), want: "pol-1"},
		{name: "email value", attr: slog.String("approver", "ops@example.com"), want: "o***@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := redactor.RedactAttr(tt.attr).Value.String(); got != tt.want {
				t.Errorf("RedactAttr() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRedactor_Groups(t *testing.T) {
	redactor := NewRedactor(nil)
	attr := redactor.RedactAttr(slog.Group("hold", slog.String("applied_by", "legal@example.com"), slog.Int("days", 30)))

	group := attr.Value.Group()
	if len(group) != 2 {
		t.Fatalf("group = %v", group)
	}
	if group[0].Value.String() != "l***@example.com" {
		t.Errorf("applied_by = %q", group[0].Value.String())
	}
	if group[1].Value.Int64() != 30 {
		t.Errorf("days = %v", group[1].Value)
	}
}

func TestRedactHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Format: "text", RedactPII: true, Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}

	logger.With("released_by", "counsel@example.com").Info("hold released by counsel@example.com")

	out := buf.String()
	if strings.Contains(out, "counsel@example.com") {
		t.Errorf("e-mail leaked: %s", out)
	}
	if strings.Count(out, "c***@example.com") != 2 {
		t.Errorf("expected message and attribute redacted: %s", out)
	}
}

func TestRedactEmail(t *testing.T) {
	tests := map[string]string{
		"user@example.com": "u***@example.com",
		"@example.com":     "***@example.com",
		"not-an-email":     "not-an-email",
	}
	for in, want := range tests {
		if got := RedactEmail(in); got != want {
			t.Errorf("RedactEmail(%q) = %q, want %q", in, got, want)
		}
	}
}
