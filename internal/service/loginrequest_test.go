package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"

	apperrors "github.com/surdiana/authd/internal/errors"
	"github.com/surdiana/authd/internal/model"
)

func newTestBroker(requests *memoryKV, users *fakeUserStore, history *fakeHistoryStore) *LoginRequestService {
	tokens := newTestTokenService(newMemoryKV())
	return NewLoginRequestService(requests, users, history, tokens, "authd-test", time.Minute, zap.NewNop())
}

func totpSecret(t *testing.T) string {
	t.Helper()
	key, err := totp.Generate(totp.GenerateOpts{Issuer: "authd-test", AccountName: "user"})
	if err != nil {
		t.Fatalf("generate totp key: %v", err)
	}
	return key.Secret()
}

func currentCode(t *testing.T, secret string) string {
	t.Helper()
	code, err := totp.GenerateCode(secret, time.Now())
	if err != nil {
		t.Fatalf("generate totp code: %v", err)
	}
	return code
}

func storeSnapshot(t *testing.T, broker *LoginRequestService, snap UserSnapshot) string {
	t.Helper()
	requestID := NewRequestID()
	if err := broker.Store(context.Background(), requestID, snap); err != nil {
		t.Fatalf("Store returned error: %v", err)
	}
	return requestID
}

func TestCheckTotpInactiveIssuesImmediately(t *testing.T) {
	history := &fakeHistoryStore{}
	broker := newTestBroker(newMemoryKV(), newFakeUserStore(), history)

	requestID := storeSnapshot(t, broker, UserSnapshot{
		ID:    uuid.NewString(),
		Login: "user1",
	})

	pair, err := broker.CheckTotp(context.Background(), requestID, "000000")
	if err != nil {
		t.Fatalf("CheckTotp returned error: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Error("inactive second factor did not yield a token pair")
	}
	if len(history.totpFailed) != 0 {
		t.Errorf("audit rows flagged on a successful path: %v", history.totpFailed)
	}
}

func TestCheckTotpNotSynced(t *testing.T) {
	history := &fakeHistoryStore{}
	broker := newTestBroker(newMemoryKV(), newFakeUserStore(), history)

	requestID := storeSnapshot(t, broker, UserSnapshot{
		ID:         uuid.NewString(),
		Login:      "user1",
		TotpActive: true,
		TotpSync:   false,
		TotpSecret: totpSecret(t),
	})

	_, err := broker.CheckTotp(context.Background(), requestID, "000000")
	if !errors.Is(err, apperrors.ErrTotpNotSynced) {
		t.Fatalf("CheckTotp error = %v, want ErrTotpNotSynced", err)
	}
	if len(history.totpFailed) != 1 || history.totpFailed[0] != requestID {
		t.Errorf("audit rows not flagged for request %s: %v", requestID, history.totpFailed)
	}
}

func TestCheckTotpWrongCode(t *testing.T) {
	history := &fakeHistoryStore{}
	broker := newTestBroker(newMemoryKV(), newFakeUserStore(), history)

	requestID := storeSnapshot(t, broker, UserSnapshot{
		ID:         uuid.NewString(),
		Login:      "user1",
		TotpActive: true,
		TotpSync:   true,
		TotpSecret: totpSecret(t),
	})

	_, err := broker.CheckTotp(context.Background(), requestID, "000000")
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("CheckTotp error = %v, want ErrNotFound", err)
	}
	if len(history.totpFailed) != 1 {
		t.Errorf("wrong code did not flag the audit rows")
	}
}

func TestCheckTotpCorrectCode(t *testing.T) {
	history := &fakeHistoryStore{}
	broker := newTestBroker(newMemoryKV(), newFakeUserStore(), history)

	secret := totpSecret(t)
	requestID := storeSnapshot(t, broker, UserSnapshot{
		ID:         uuid.NewString(),
		Login:      "user1",
		TotpActive: true,
		TotpSync:   true,
		TotpSecret: secret,
		Roles:      []string{"editor"},
	})

	pair, err := broker.CheckTotp(context.Background(), requestID, currentCode(t, secret))
	if err != nil {
		t.Fatalf("CheckTotp returned error: %v", err)
	}
	if pair.AccessToken == "" {
		t.Error("correct code did not yield tokens")
	}
	if len(history.totpFailed) != 0 {
		t.Errorf("audit rows flagged on success: %v", history.totpFailed)
	}
}

func TestCheckTotpUnknownRequest(t *testing.T) {
	broker := newTestBroker(newMemoryKV(), newFakeUserStore(), &fakeHistoryStore{})

	_, err := broker.CheckTotp(context.Background(), NewRequestID(), "000000")
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("CheckTotp error = %v, want ErrNotFound", err)
	}
}

func TestCheckTotpExpiredRequest(t *testing.T) {
	requests := newMemoryKV()
	broker := newTestBroker(requests, newFakeUserStore(), &fakeHistoryStore{})

	requestID := storeSnapshot(t, broker, UserSnapshot{ID: uuid.NewString(), Login: "user1"})

	requests.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	_, err := broker.CheckTotp(context.Background(), requestID, "000000")
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expired request error = %v, want ErrNotFound", err)
	}
}

func TestGenerateProvisioningURLPersistsSecret(t *testing.T) {
	user := &model.User{ID: uuid.New(), Login: "user1"}
	users := newFakeUserStore(user)
	broker := newTestBroker(newMemoryKV(), users, &fakeHistoryStore{})

	requestID := storeSnapshot(t, broker, UserSnapshot{ID: user.ID.String(), Login: user.Login})

	url, err := broker.GenerateProvisioningURL(context.Background(), requestID)
	if err != nil {
		t.Fatalf("GenerateProvisioningURL returned error: %v", err)
	}
	if url == "" {
		t.Fatal("empty provisioning URL")
	}
	if user.TotpSecret == "" {
		t.Error("secret was not persisted on the user row")
	}
	if user.TotpActive {
		t.Error("provisioning alone must not activate the second factor")
	}
}

func TestActivateTotpFlow(t *testing.T) {
	user := &model.User{ID: uuid.New(), Login: "user1"}
	users := newFakeUserStore(user)
	broker := newTestBroker(newMemoryKV(), users, &fakeHistoryStore{})

	requestID := storeSnapshot(t, broker, UserSnapshot{ID: user.ID.String(), Login: user.Login})

	if _, err := broker.GenerateProvisioningURL(context.Background(), requestID); err != nil {
		t.Fatalf("GenerateProvisioningURL returned error: %v", err)
	}

	// Wrong first code leaves the factor off.
	if _, err := broker.ActivateTotp(context.Background(), requestID, "000000"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("ActivateTotp(wrong code) error = %v, want ErrNotFound", err)
	}
	if user.TotpActive {
		t.Fatal("wrong code activated the second factor")
	}

	pair, err := broker.ActivateTotp(context.Background(), requestID, currentCode(t, user.TotpSecret))
	if err != nil {
		t.Fatalf("ActivateTotp returned error: %v", err)
	}
	if pair.AccessToken == "" {
		t.Error("activation did not yield tokens")
	}
	if !user.TotpActive || !user.TotpSync {
		t.Errorf("flags after activation: active=%v sync=%v, want both true", user.TotpActive, user.TotpSync)
	}
}
