package auth

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/pkg/domain"
	"github.com/golang-jwt/jwt/v5"
)

type staticVerifier struct {
	identity *ExternalIdentity
	err      error
}

func (v *staticVerifier) Verify(context.Context, string) (*ExternalIdentity, error) {
	return v.identity, v.err
}

func newFederatedServiceForTest(clock Clock, store AccountStore, tokens *TokenService) *FederatedService {
	audit := NewAuditDispatcher(NoopSink{}, 16, clock)
	return NewFederatedService(store, tokens, audit, slog.Default(), clock)
}

func TestFederatedService_ProvisionsOnFirstLogin(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	store := newMemStore()
	tokens := newTokenServiceForTest(clock, store)
	svc := newFederatedServiceForTest(clock, store, tokens)
	ctx := context.Background()

	verifier := &staticVerifier{identity: &ExternalIdentity{
		Provider:      ProviderGoogle,
		Subject:       "google-sub-1",
		Email:         "Alice@Example.com",
		EmailVerified: true,
		Name:          "Alice",
	}}

	pair, err := svc.Login(ctx, verifier, "id-token", RequestMeta{})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("missing tokens")
	}

	account, err := store.GetByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("provisioned account missing: %v", err)
	}
	if !account.Verified {
		t.Error("provider-vouched accounts start verified")
	}
	if account.Role != domain.RoleUser {
		t.Errorf("role = %q", account.Role)
	}

	// Second login reuses the account.
	if _, err := svc.Login(ctx, verifier, "id-token", RequestMeta{}); err != nil {
		t.Fatalf("second Login: %v", err)
	}
	if _, err := store.GetByEmail(ctx, "alice@example.com"); err != nil {
		t.Fatalf("account lookup: %v", err)
	}
}

func TestFederatedService_RejectsUnverifiedProviderEmail(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	store := newMemStore()
	tokens := newTokenServiceForTest(clock, store)
	svc := newFederatedServiceForTest(clock, store, tokens)

	verifier := &staticVerifier{identity: &ExternalIdentity{
		Provider:      ProviderGoogle,
		Subject:       "google-sub-2",
		Email:         "bob@example.com",
		EmailVerified: false,
	}}
	if _, err := svc.Login(context.Background(), verifier, "id-token", RequestMeta{}); !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestFederatedService_PasswordLoginStaysClosed(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	store := newMemStore()
	tokens := newTokenServiceForTest(clock, store)
	svc := newFederatedServiceForTest(clock, store, tokens)
	ctx := context.Background()

	verifier := &staticVerifier{identity: &ExternalIdentity{
		Provider:      ProviderGoogle,
		Subject:       "google-sub-3",
		Email:         "alice@example.com",
		EmailVerified: true,
	}}
	if _, err := svc.Login(ctx, verifier, "id-token", RequestMeta{}); err != nil {
		t.Fatalf("Login: %v", err)
	}

	account, _ := store.GetByEmail(ctx, "alice@example.com")
	if ok, _ := VerifyPassword("", account.PasswordHash); ok {
		t.Error("empty password verified against a provisioned account")
	}
	if ok, _ := VerifyPassword("password", account.PasswordHash); ok {
		t.Error("guessed password verified against a provisioned account")
	}
}

func signGoogleToken(t *testing.T, claims GoogleClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("irrelevant"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestGoogleVerifier_Verify(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	verifier := NewGoogleVerifier(GoogleConfig{
		ClientID:        "web-client",
		MobileClientIDs: []string{"mobile-client"},
	}, clock)
	expiry := jwt.NewNumericDate(clock.Now().Add(time.Hour))

	tests := []struct {
		name    string
		claims  GoogleClaims
		wantErr bool
	}{
		{
			name: "valid web token",
			claims: GoogleClaims{
				RegisteredClaims: jwt.RegisteredClaims{
					Issuer:    "https://accounts.google.com",
					Audience:  jwt.ClaimStrings{"web-client"},
					Subject:   "sub-1",
					ExpiresAt: expiry,
				},
				Email: "alice@example.com", EmailVerified: true, Name: "Alice",
			},
		},
		{
			name: "valid mobile token with alt issuer",
			claims: GoogleClaims{
				RegisteredClaims: jwt.RegisteredClaims{
					Issuer:    "accounts.google.com",
					Audience:  jwt.ClaimStrings{"mobile-client"},
					Subject:   "sub-2",
					ExpiresAt: expiry,
				},
				Email: "alice@example.com", EmailVerified: true,
			},
		},
		{
			name: "wrong issuer",
			claims: GoogleClaims{
				RegisteredClaims: jwt.RegisteredClaims{
					Issuer:    "https://evil.example.com",
					Audience:  jwt.ClaimStrings{"web-client"},
					ExpiresAt: expiry,
				},
			},
			wantErr: true,
		},
		{
			name: "wrong audience",
			claims: GoogleClaims{
				RegisteredClaims: jwt.RegisteredClaims{
					Issuer:    "https://accounts.google.com",
					Audience:  jwt.ClaimStrings{"someone-else"},
					ExpiresAt: expiry,
				},
			},
			wantErr: true,
		},
		{
			name: "expired",
			claims: GoogleClaims{
				RegisteredClaims: jwt.RegisteredClaims{
					Issuer:    "https://accounts.google.com",
					Audience:  jwt.ClaimStrings{"web-client"},
					ExpiresAt: jwt.NewNumericDate(clock.Now().Add(-time.Hour)),
				},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity, err := verifier.Verify(context.Background(), signGoogleToken(t, tt.claims))
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Verify: %v", err)
			}
			if identity.Provider != ProviderGoogle || identity.Email != tt.claims.Email {
				t.Errorf("identity = %+v", identity)
			}
		})
	}
}
