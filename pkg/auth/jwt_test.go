package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-key-must-be-at-least-32-characters-long"

func TestJWTManager_GenerateToken(t *testing.T) {
	m, err := NewJWTManager(testSecret, "opportunity", 15*time.Minute)
	if err != nil {
		t.Fatalf("Failed to create JWT manager: %v", err)
	}

	tests := []struct {
		name      string
		subject   string
		role      string
		wantError bool
	}{
		{name: "admin token", subject: "alice", role: RoleAdmin},
		{name: "viewer token", subject: "bob", role: RoleViewer},
		{name: "empty subject", subject: "", role: RoleViewer, wantError: true},
		{name: "empty role", subject: "carol", role: "", wantError: true},
		{name: "unknown role", subject: "dave", role: "editor", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := m.GenerateToken(tt.subject, tt.role)
			if tt.wantError {
				if err == nil {
					t.Errorf("Expected error but got none")
				}
				if token != "" {
					t.Errorf("Expected empty token on error, got %s", token)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			claims, err := m.ValidateToken(context.Background(), token)
			if err != nil {
				t.Fatalf("ValidateToken: %v", err)
			}
			if claims.Subject != tt.subject || claims.Role != tt.role {
				t.Errorf("claims = %+v, want subject %s role %s", claims, tt.subject, tt.role)
			}
		})
	}
}

func TestJWTManager_ValidateToken(t *testing.T) {
	m, _ := NewJWTManager(testSecret, "opportunity", time.Hour)
	other, _ := NewJWTManager("another-secret-key-that-is-long-enough-too", "opportunity", time.Hour)
	wrongIssuer, _ := NewJWTManager(testSecret, "someone-else", time.Hour)

	good, _ := m.GenerateToken("alice", RoleViewer)
	foreign, _ := other.GenerateToken("alice", RoleViewer)
	misissued, _ := wrongIssuer.GenerateToken("alice", RoleViewer)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "alice", "role": RoleAdmin})
	none, _ := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{name: "valid", token: good},
		{name: "empty", token: "", wantErr: true},
		{name: "garbage", token: "not.a.token", wantErr: true},
		{name: "different secret", token: foreign, wantErr: true},
		{name: "different issuer", token: misissued, wantErr: true},
		{name: "alg none", token: none, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.ValidateToken(context.Background(), tt.token)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateToken() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestJWTManager_TokenExpiration(t *testing.T) {
	m, _ := NewJWTManager(testSecret, "", time.Minute)
	issued := time.Now().Add(-2 * time.Minute)
	m.now = func() time.Time { return issued }
	token, err := m.GenerateToken("alice", RoleViewer)
	if err != nil {
		t.Fatal(err)
	}
	m.now = time.Now

	_, err = m.ValidateToken(context.Background(), token)
	if !errors.Is(err, ErrExpiredToken) {
		t.Errorf("Expected ErrExpiredToken, got %v", err)
	}
}

func TestJWTManager_ShortSecret(t *testing.T) {
	if _, err := NewJWTManager("short", "", time.Hour); !errors.Is(err, ErrShortSecret) {
		t.Errorf("Expected ErrShortSecret, got %v", err)
	}
}

func TestCompositeTokenValidator(t *testing.T) {
	a, _ := NewJWTManager(testSecret, "", time.Hour)
	b, _ := NewJWTManager("another-secret-key-that-is-long-enough-too", "", time.Hour)
	token, _ := b.GenerateToken("svc", RoleAdmin)

	c := NewCompositeTokenValidator(a, b)
	claims, err := c.ValidateToken(context.Background(), token)
	if err != nil {
		t.Fatalf("composite should accept token of second validator: %v", err)
	}
	if !claims.IsAdmin() {
		t.Errorf("Expected admin claims, got %+v", claims)
	}
	if c.Name() != "composite(jwt-hs256,jwt-hs256)" {
		t.Errorf("Name() = %s", c.Name())
	}

	if _, err := NewCompositeTokenValidator().ValidateToken(context.Background(), token); !errors.Is(err, ErrNoValidatorMatched) {
		t.Errorf("empty chain error = %v", err)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Bearer ", "", false},
		{"Basic abc", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := BearerToken(tt.header)
		if got != tt.want || ok != tt.ok {
			t.Errorf("BearerToken(%q) = %q, %v; want %q, %v", tt.header, got, ok, tt.want, tt.ok)
		}
	}
}

func TestClaimsContext(t *testing.T) {
	ctx := WithClaims(context.Background(), &Claims{Subject: "alice", Role: RoleViewer})
	c, ok := ClaimsFrom(ctx)
	if !ok || c.Subject != "alice" {
		t.Errorf("ClaimsFrom() = %+v, %v", c, ok)
	}
	if _, ok := ClaimsFrom(context.Background()); ok {
		t.Error("Expected no claims in empty context")
	}
}
