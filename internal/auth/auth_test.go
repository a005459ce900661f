package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTokens_RoundTrip(t *testing.T) {
	tokens, err := NewTokens("secret")
	if err != nil {
		t.Fatalf("NewTokens failed: %v", err)
	}

	token, err := tokens.Generate(User{UID: "u1", DisplayName: "Sam"}, time.Hour)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	u, err := tokens.Parse(token)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if u.UID != "u1" || u.DisplayName != "Sam" {
		t.Errorf("Parse = %+v", u)
	}
}

func TestTokens_Rejects(t *testing.T) {
	tokens, _ := NewTokens("secret")
	other, _ := NewTokens("other-secret")

	foreign, err := other.Generate(User{UID: "u1"}, time.Hour)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	expired, _ := NewTokens("secret")
	expired.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	old, err := expired.Generate(User{UID: "u1"}, time.Hour)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", foreign},
		{"expired", old},
		{"garbage", "not-a-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tokens.Parse(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Parse error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestTokens_RequiresUser(t *testing.T) {
	tokens, _ := NewTokens("secret")
	if _, err := tokens.Generate(User{}, time.Hour); err == nil {
		t.Error("expected error for zero user")
	}
	if _, err := NewTokens(""); err == nil {
		t.Error("expected error for empty secret")
	}
}

func TestContext(t *testing.T) {
	if FromContext(context.Background()).SignedIn() {
		t.Error("empty context must not carry a user")
	}

	ctx := WithUser(context.Background(), User{UID: "u1"})
	if got := FromContext(ctx); got.UID != "u1" || !got.SignedIn() {
		t.Errorf("FromContext = %+v", got)
	}
}
