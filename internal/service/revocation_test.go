package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestRevocation(ledger KV) *RevocationService {
	return NewRevocationService(ledger, time.Hour, 24*time.Hour, zap.NewNop())
}

func issueAndParse(t *testing.T, tokens *TokenService, userID string) (*Claims, *Claims) {
	t.Helper()
	pair, err := tokens.Issue(context.Background(), userID, false, nil, nil)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	access, err := tokens.Parse(pair.AccessToken)
	if err != nil {
		t.Fatalf("Parse(access) returned error: %v", err)
	}
	refresh, err := tokens.Parse(pair.RefreshToken)
	if err != nil {
		t.Fatalf("Parse(refresh) returned error: %v", err)
	}
	return access, refresh
}

func TestRevokeAllBlocksBothTokenKinds(t *testing.T) {
	ledger := newMemoryKV()
	revocations := newTestRevocation(ledger)
	tokens := newTestTokenService(newMemoryKV())

	access, refresh := issueAndParse(t, tokens, "user-1")

	if err := revocations.Revoke(context.Background(), "user-1", ScopeAll); err != nil {
		t.Fatalf("Revoke returned error: %v", err)
	}

	for name, claims := range map[string]*Claims{"access": access, "refresh": refresh} {
		revoked, err := revocations.IsRevoked(context.Background(), claims)
		if err != nil {
			t.Fatalf("IsRevoked(%s) returned error: %v", name, err)
		}
		if !revoked {
			t.Errorf("%s token still valid after revoke-all", name)
		}
	}
}

func TestTokensIssuedAfterRevocationSurvive(t *testing.T) {
	ledger := newMemoryKV()
	revocations := newTestRevocation(ledger)
	tokens := newTestTokenService(newMemoryKV())

	// Backdate the revocation so tokens minted "later" have a newer baseline.
	revocations.now = func() time.Time { return time.Now().Add(-time.Minute) }
	if err := revocations.Revoke(context.Background(), "user-1", ScopeAll); err != nil {
		t.Fatalf("Revoke returned error: %v", err)
	}
	revocations.now = time.Now

	access, refresh := issueAndParse(t, tokens, "user-1")

	for name, claims := range map[string]*Claims{"access": access, "refresh": refresh} {
		revoked, err := revocations.IsRevoked(context.Background(), claims)
		if err != nil {
			t.Fatalf("IsRevoked(%s) returned error: %v", name, err)
		}
		if revoked {
			t.Errorf("%s token minted after revocation is treated as revoked", name)
		}
	}
}

func TestSingleDeviceRevocationSparesOtherDevice(t *testing.T) {
	ledger := newMemoryKV()
	revocations := newTestRevocation(ledger)
	tokens := newTestTokenService(newMemoryKV())

	device1Access, device1Refresh := issueAndParse(t, tokens, "user-1")
	device2Access, device2Refresh := issueAndParse(t, tokens, "user-1")

	// Per-device scope is the access token's jti; the refresh token follows
	// through its related_access_token link.
	if err := revocations.Revoke(context.Background(), "user-1", device1Access.ID); err != nil {
		t.Fatalf("Revoke returned error: %v", err)
	}

	cases := []struct {
		name    string
		claims  *Claims
		revoked bool
	}{
		{"device1 access", device1Access, true},
		{"device1 refresh", device1Refresh, true},
		{"device2 access", device2Access, false},
		{"device2 refresh", device2Refresh, false},
	}
	for _, tc := range cases {
		revoked, err := revocations.IsRevoked(context.Background(), tc.claims)
		if err != nil {
			t.Fatalf("IsRevoked(%s) returned error: %v", tc.name, err)
		}
		if revoked != tc.revoked {
			t.Errorf("IsRevoked(%s) = %v, want %v", tc.name, revoked, tc.revoked)
		}
	}
}

func TestRevokeMergePreservesOtherScopes(t *testing.T) {
	ledger := newMemoryKV()
	revocations := newTestRevocation(ledger)
	tokens := newTestTokenService(newMemoryKV())

	device1Access, _ := issueAndParse(t, tokens, "user-1")
	device2Access, _ := issueAndParse(t, tokens, "user-1")

	if err := revocations.Revoke(context.Background(), "user-1", device1Access.ID); err != nil {
		t.Fatalf("first Revoke returned error: %v", err)
	}
	if err := revocations.Revoke(context.Background(), "user-1", device2Access.ID); err != nil {
		t.Fatalf("second Revoke returned error: %v", err)
	}

	for name, claims := range map[string]*Claims{"device1": device1Access, "device2": device2Access} {
		revoked, err := revocations.IsRevoked(context.Background(), claims)
		if err != nil {
			t.Fatalf("IsRevoked(%s) returned error: %v", name, err)
		}
		if !revoked {
			t.Errorf("%s access token survived its own revocation after a later merge", name)
		}
	}
}

func TestIsRevokedEmptyLedger(t *testing.T) {
	revocations := newTestRevocation(newMemoryKV())
	tokens := newTestTokenService(newMemoryKV())

	access, _ := issueAndParse(t, tokens, "user-1")
	revoked, err := revocations.IsRevoked(context.Background(), access)
	if err != nil {
		t.Fatalf("IsRevoked returned error: %v", err)
	}
	if revoked {
		t.Error("token reported revoked with no ledger entries")
	}
}

func TestRevocationStoreOutageSurfaces(t *testing.T) {
	ledger := newMemoryKV()
	ledger.failing = true
	revocations := newTestRevocation(ledger)
	tokens := newTestTokenService(newMemoryKV())

	access, _ := issueAndParse(t, tokens, "user-1")
	if _, err := revocations.IsRevoked(context.Background(), access); err == nil {
		t.Error("IsRevoked swallowed a store outage; tokens must not pass open")
	}
}
