package auth

import (
	"strings"
	"testing"
	"time"
)

func setSecret(t *testing.T) {
	t.Helper()
	t.Setenv(envJWTSecret, "test-secret-for-auth-package")
}

func TestEnabled(t *testing.T) {
	t.Setenv(envJWTSecret, "")
	if Enabled() {
		t.Fatal("Enabled() = true with empty secret")
	}
	t.Setenv(envJWTSecret, "s")
	if !Enabled() {
		t.Fatal("Enabled() = false with secret set")
	}
}

func TestGenerateAndParseToken(t *testing.T) {
	setSecret(t)

	token, err := GenerateToken("dashboard")
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Fatalf("token %q is not a compact JWT", token)
	}

	claims, err := ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken returned error: %v", err)
	}
	if claims.ClientID != "dashboard" {
		t.Errorf("ClientID = %q, want %q", claims.ClientID, "dashboard")
	}
	if claims.ExpiresAt == nil || time.Until(claims.ExpiresAt.Time) <= 0 {
		t.Error("token must carry a future expiry")
	}
}

func TestParseToken_Invalid(t *testing.T) {
	setSecret(t)

	cases := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.jwt"},
		{"tampered", func() string {
			tok, _ := GenerateToken("x")
			return tok + "x"
		}()},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseToken(tc.token); err == nil {
				t.Fatalf("ParseToken(%q) succeeded, want error", tc.token)
			}
		})
	}
}

func TestParseTokenExpiry(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"", 24 * time.Hour},
		{"1", time.Hour},
		{"48", 48 * time.Hour},
		{"not-a-number", 24 * time.Hour},
	}

	for _, tc := range cases {
		if got := parseTokenExpiry(tc.in); got != tc.want {
			t.Errorf("parseTokenExpiry(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
