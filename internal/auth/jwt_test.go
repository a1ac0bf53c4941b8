package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	m, err := NewTokenManager("s3cret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenManager failed: %v", err)
	}

	token, err := m.GenerateOwnerToken("owner-1")
	if err != nil {
		t.Fatalf("GenerateOwnerToken failed: %v", err)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.Subject != "owner-1" || claims.Role != RoleOwner {
		t.Errorf("Unexpected claims %+v", claims)
	}
}

func TestTokenManager_Rejects(t *testing.T) {
	m, _ := NewTokenManager("s3cret", time.Hour)
	other, _ := NewTokenManager("other", time.Hour)

	foreign, _ := other.GenerateOwnerToken("owner-1")

	expiredManager, _ := NewTokenManager("s3cret", time.Hour)
	expiredManager.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _ := expiredManager.GenerateOwnerToken("owner-1")

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "owner-1"},
	})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	noSubject := jwt.NewWithClaims(jwt.SigningMethodHS256, &JWTClaims{Role: RoleOwner})
	anonymous, _ := noSubject.SignedString([]byte("s3cret"))

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", foreign},
		{"expired", expired},
		{"alg none", unsigned},
		{"no subject", anonymous},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.ValidateToken(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestNewTokenManagerRequiresSecret(t *testing.T) {
	if _, err := NewTokenManager("", time.Hour); err == nil {
		t.Error("Expected error for empty secret")
	}
}
