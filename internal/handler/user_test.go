package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/surdiana/authd/internal/dto"
	"github.com/surdiana/authd/internal/model"
	"github.com/surdiana/authd/internal/service"
)

type stubHistoryStore struct {
	rows []model.LoginHistory
}

func (s *stubHistoryStore) Create(_ context.Context, _ *model.LoginHistory) error { return nil }

func (s *stubHistoryStore) MarkTotpFailed(_ context.Context, _ string) error { return nil }

func (s *stubHistoryStore) Page(_ context.Context, _ uuid.UUID, _, _, _ int, _ time.Month) ([]model.LoginHistory, error) {
	return s.rows, nil
}

func newHistoryRouter(store service.HistoryStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewUserHandler(nil, service.NewHistoryService(store, zap.NewNop()), zap.NewNop())
	router := gin.New()
	router.GET("/users/history/:user_id", h.History)
	return router
}

func getHistory(t *testing.T, router *gin.Engine, userID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/users/history/"+userID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHistoryEmptyMonthIsNotFound(t *testing.T) {
	router := newHistoryRouter(&stubHistoryStore{})

	rec := getHistory(t, router, uuid.NewString())
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body %q: %v", rec.Body.String(), err)
	}
	if body["msg"] != "Object not found" {
		t.Errorf("msg = %q, want Object not found", body["msg"])
	}
}

func TestHistoryReturnsPage(t *testing.T) {
	store := &stubHistoryStore{rows: []model.LoginHistory{{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		UserAgent:   "test-agent",
		LoginStatus: true,
		TotpStatus:  true,
	}}}
	router := newHistoryRouter(store)

	rec := getHistory(t, router, uuid.NewString())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	var page dto.HistoryPageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("unmarshal body %q: %v", rec.Body.String(), err)
	}
	if len(page.Entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(page.Entries))
	}
	if page.Entries[0].UserAgent != "test-agent" {
		t.Errorf("user_agent = %q, want test-agent", page.Entries[0].UserAgent)
	}
}

func TestHistoryBadUserID(t *testing.T) {
	router := newHistoryRouter(&stubHistoryStore{})

	rec := getHistory(t, router, "not-a-uuid")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
