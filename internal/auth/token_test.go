package auth

import (
	"errors"
	"testing"
	"time"
)

func TestIssueAndParseToken(t *testing.T) {
	now := time.Now()
	token, err := IssueToken("secret", "admin", time.Hour, now)
	if err != nil {
		t.Fatalf("IssueToken() error: %v", err)
	}

	sub, err := ParseToken("secret", token)
	if err != nil {
		t.Fatalf("ParseToken() error: %v", err)
	}
	if sub != "admin" {
		t.Errorf("subject = %q, want %q", sub, "admin")
	}
}

func TestParseToken_Rejects(t *testing.T) {
	now := time.Now()
	valid, _ := IssueToken("secret", "admin", time.Hour, now)
	expired, _ := IssueToken("secret", "admin", time.Hour, now.Add(-2*time.Hour))
	noSubject, _ := IssueToken("secret", "", time.Hour, now)

	tests := []struct {
		name   string
		secret string
		token  string
	}{
		{name: "wrong secret", secret: "other", token: valid},
		{name: "expired", secret: "secret", token: expired},
		{name: "garbage", secret: "secret", token: "not.a.token"},
		{name: "empty subject", secret: "secret", token: noSubject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseToken(tt.secret, tt.token)
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("ParseToken() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestIssueToken_EmptySecret(t *testing.T) {
	if _, err := IssueToken("", "admin", time.Hour, time.Now()); err == nil {
		t.Error("IssueToken() with empty secret succeeded")
	}
}
