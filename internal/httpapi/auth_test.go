package httpapi

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/NabeelMohideen/StockSync/internal/domain"
	"github.com/NabeelMohideen/StockSync/internal/service"
	"github.com/NabeelMohideen/StockSync/internal/store/memory"
)

func newTestAuthManager(t *testing.T, secret string, ttl time.Duration) *AuthManager {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	svc := service.New(memory.NewSeeded(), nil, logger, time.Minute)
	return NewAuthManager(secret, ttl, svc)
}

func TestLoginIssuesParsableToken(t *testing.T) {
	manager := newTestAuthManager(t, "test-secret", time.Hour)

	resp, err := manager.Login(context.Background(), domain.LoginRequest{
		Username: "sales",
		Password: "sales123",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if resp.AccessToken == "" {
		t.Fatalf("expected an access token")
	}
	if resp.Role != domain.RoleSalesPerson {
		t.Fatalf("expected sales_person role, got %s", resp.Role)
	}
	if resp.AssignedShopID != "shop-colombo" {
		t.Fatalf("expected assigned shop in response, got %q", resp.AssignedShopID)
	}

	actor, err := manager.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if actor.Username != "sales" {
		t.Fatalf("expected subject sales, got %s", actor.Username)
	}
	if actor.Role != domain.RoleSalesPerson {
		t.Fatalf("expected role claim, got %s", actor.Role)
	}
	if actor.ShopID != "shop-colombo" {
		t.Fatalf("expected shop claim, got %q", actor.ShopID)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	manager := newTestAuthManager(t, "test-secret", time.Hour)

	_, err := manager.Login(context.Background(), domain.LoginRequest{
		Username: "admin",
		Password: "not-the-password",
	})
	if err == nil {
		t.Fatalf("expected login to fail")
	}
	if err.Error() != "invalid credentials" {
		t.Fatalf("expected generic credential error, got %q", err.Error())
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	issuer := newTestAuthManager(t, "secret-one", time.Hour)
	verifier := newTestAuthManager(t, "secret-two", time.Hour)

	resp, err := issuer.Login(context.Background(), domain.LoginRequest{
		Username: "admin",
		Password: "admin123",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if _, err := verifier.ParseToken(resp.AccessToken); err == nil {
		t.Fatalf("expected token signed with a different secret to be rejected")
	}
}

func TestParseTokenRejectsExpiredToken(t *testing.T) {
	manager := newTestAuthManager(t, "test-secret", time.Hour)

	expired, err := manager.sign(domain.UserAccount{
		Username: "admin",
		Role:     domain.RoleSuperAdmin,
	}, time.Now().UTC().Add(-time.Minute))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := manager.ParseToken(expired); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	manager := newTestAuthManager(t, "test-secret", time.Hour)

	if _, err := manager.ParseToken("not.a.jwt"); err == nil {
		t.Fatalf("expected garbage token to be rejected")
	}
}
