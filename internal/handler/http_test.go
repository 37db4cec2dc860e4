package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/draw"
	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/model"
	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/pkg/metrics"
	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/repository"
	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type spinFunc func(ctx context.Context, userID int64) (*service.SpinResult, error)

func (f spinFunc) Spin(ctx context.Context, userID int64) (*service.SpinResult, error) {
	return f(ctx, userID)
}

type catalogFunc func(ctx context.Context) ([]model.CatalogItem, error)

func (f catalogFunc) ListActive(ctx context.Context) ([]model.CatalogItem, error) { return f(ctx) }

type historyFunc func(ctx context.Context, userID int64) ([]model.HistoryView, error)

func (f historyFunc) ListFor(ctx context.Context, userID int64) ([]model.HistoryView, error) {
	return f(ctx, userID)
}

type profileFunc func(ctx context.Context, steamID string) (*model.User, error)

func (f profileFunc) GetProfile(ctx context.Context, steamID string) (*model.User, error) {
	return f(ctx, steamID)
}

type statsFunc func(ctx context.Context) (*model.ServerStats, error)

func (f statsFunc) ServerStats(ctx context.Context) (*model.ServerStats, error) { return f(ctx) }

type syncFunc func(ctx context.Context) (int, error)

func (f syncFunc) Sync(ctx context.Context) (int, error) { return f(ctx) }

type healthFunc func(ctx context.Context) error

func (f healthFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func do(t *testing.T, router *gin.Engine, method, path, body string, headers ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w, out
}

func TestSpin_Success(t *testing.T) {
	item := model.CatalogItem{ID: 3, Name: "VIP Bronze", Rarity: "rare", PayoutKind: model.PayoutPrivilege, Weight: 5, Icon: "crown"}
	var gotUser int64
	h := &HTTPHandler{Spins: spinFunc(func(_ context.Context, userID int64) (*service.SpinResult, error) {
		gotUser = userID
		return &service.SpinResult{Item: item}, nil
	})}
	router := NewRouter(h, nil, "")

	w, body := do(t, router, http.MethodPost, "/api/cases/spin", `{"user_id": 42}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(42), gotUser)

	got := body["item"].(map[string]any)
	assert.Equal(t, "VIP Bronze", got["name"])
	assert.Equal(t, "privilege", got["type"])
	assert.Equal(t, 5.0, got["chance"])
	assert.Equal(t, "crown", got["icon"])
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestSpin_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		status   int
		kind     string
		timeLeft string
	}{
		{"missing body", ``, nil, http.StatusBadRequest, KindValidation, ""},
		{"missing user", `{}`, nil, http.StatusBadRequest, KindValidation, ""},
		{"zero user", `{"user_id": 0}`, nil, http.StatusBadRequest, KindValidation, ""},
		{"unknown user", `{"user_id": 9}`, repository.ErrUserNotFound, http.StatusNotFound, KindNotFound, ""},
		{"cooldown", `{"user_id": 9}`, &service.CooldownError{Remaining: 3*time.Hour + 7*time.Minute + 30*time.Second}, http.StatusTooManyRequests, KindCooldownActive, "3ч 7м"},
		{"empty catalog", `{"user_id": 9}`, draw.ErrEmptyCatalog, http.StatusInternalServerError, KindEmptyCatalog, ""},
		{"invalid weights", `{"user_id": 9}`, draw.ErrInvalidWeights, http.StatusInternalServerError, KindInvalidWeights, ""},
		{"invalid payout", `{"user_id": 9}`, fmt.Errorf("item 1: %w", service.ErrInvalidPayout), http.StatusInternalServerError, KindInvalidPayout, ""},
		{"store error", `{"user_id": 9}`, errors.New("pq: connection refused to 10.0.0.5"), http.StatusInternalServerError, KindStoreError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &HTTPHandler{Spins: spinFunc(func(context.Context, int64) (*service.SpinResult, error) {
				if tt.err == nil {
					t.Fatal("service must not be called for invalid input")
				}
				return nil, tt.err
			})}
			router := NewRouter(h, nil, "")

			w, body := do(t, router, http.MethodPost, "/api/cases/spin", tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.kind, body["kind"])
			if tt.timeLeft != "" {
				assert.Equal(t, tt.timeLeft, body["time_left"])
			}
			assert.NotContains(t, w.Body.String(), "10.0.0.5")
		})
	}
}

func TestListItems(t *testing.T) {
	h := &HTTPHandler{Catalog: catalogFunc(func(context.Context) ([]model.CatalogItem, error) {
		return []model.CatalogItem{{ID: 1, Name: "A", Weight: 1}, {ID: 2, Name: "B", Weight: 9}}, nil
	})}

	w, body := do(t, NewRouter(h, nil, ""), http.MethodGet, "/api/cases/items", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["items"], 2)
}

func TestListHistory(t *testing.T) {
	wonAt := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	h := &HTTPHandler{History: historyFunc(func(_ context.Context, userID int64) ([]model.HistoryView, error) {
		if userID != 7 {
			return nil, errors.New("unexpected user")
		}
		return []model.HistoryView{{WonAt: wonAt, ItemName: "Sticker", Rarity: "common", Value: ""}}, nil
	})}
	router := NewRouter(h, nil, "")

	w, body := do(t, router, http.MethodGet, "/api/cases/history?user_id=7", "")
	assert.Equal(t, http.StatusOK, w.Code)
	history := body["history"].([]any)
	require.Len(t, history, 1)
	entry := history[0].(map[string]any)
	assert.Equal(t, "Sticker", entry["name"])
	assert.Equal(t, "2026-02-01T10:00:00Z", entry["won_at"])

	w, body = do(t, router, http.MethodGet, "/api/cases/history?user_id=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, KindValidation, body["kind"])

	w, _ = do(t, router, http.MethodGet, "/api/cases/history", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetProfile(t *testing.T) {
	h := &HTTPHandler{Profiles: profileFunc(func(_ context.Context, steamID string) (*model.User, error) {
		if steamID == "STEAM_0:1:1" {
			return &model.User{ID: 1, SteamID: steamID, Username: "alpha", Balance: 10, Privilege: "vip"}, nil
		}
		return nil, repository.ErrUserNotFound
	})}
	router := NewRouter(h, nil, "")

	w, body := do(t, router, http.MethodGet, "/api/users/STEAM_0:1:1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	user := body["user"].(map[string]any)
	assert.Equal(t, "alpha", user["username"])
	assert.Nil(t, user["last_daily_spin"])

	w, body = do(t, router, http.MethodGet, "/api/users/STEAM_0:1:2", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, KindNotFound, body["kind"])
}

func TestServerStats(t *testing.T) {
	h := &HTTPHandler{Stats: statsFunc(func(context.Context) (*model.ServerStats, error) {
		return &model.ServerStats{PlayersOnline: 5, MaxPlayers: 32, CurrentMap: "de_dust2", ServerIP: "1.2.3.4"}, nil
	})}

	w, body := do(t, NewRouter(h, nil, ""), http.MethodGet, "/api/server/stats", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5.0, body["players_online"])
	assert.Equal(t, "de_dust2", body["current_map"])

	w, body = do(t, NewRouter(&HTTPHandler{}, nil, ""), http.MethodGet, "/api/server/stats", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, KindUnavailable, body["kind"])
}

func TestSyncPlayers(t *testing.T) {
	calls := 0
	h := &HTTPHandler{Sync: syncFunc(func(context.Context) (int, error) {
		calls++
		return 12, nil
	})}
	router := NewRouter(h, nil, "s3cret")

	w, body := do(t, router, http.MethodPost, "/api/admin/sync", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, KindUnauthorized, body["kind"])

	w, _ = do(t, router, http.MethodPost, "/api/admin/sync", "", "X-Admin-Token", "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 0, calls)

	w, body = do(t, router, http.MethodPost, "/api/admin/sync", "", "X-Admin-Token", "s3cret")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Sync completed", body["message"])
	assert.Equal(t, 12.0, body["synced_players"])
}

func TestSyncPlayers_PartialFailure(t *testing.T) {
	h := &HTTPHandler{Sync: syncFunc(func(context.Context) (int, error) {
		return 4, errors.New("duplicate key value violates unique constraint")
	})}

	w, body := do(t, NewRouter(h, nil, ""), http.MethodPost, "/api/admin/sync", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 4.0, body["synced_players"])
	assert.Equal(t, KindStoreError, body["kind"])
	assert.NotContains(t, w.Body.String(), "duplicate key")
}

func TestCORSPreflight(t *testing.T) {
	router := NewRouter(&HTTPHandler{}, nil, "")

	w, _ := do(t, router, http.MethodOptions, "/api/cases/spin", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestHealthz(t *testing.T) {
	healthy := &HTTPHandler{Health: healthFunc(func(context.Context) error { return nil })}
	w, _ := do(t, NewRouter(healthy, nil, ""), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)

	down := &HTTPHandler{Health: healthFunc(func(context.Context) error { return errors.New("timeout") })}
	w, _ = do(t, NewRouter(down, nil, ""), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	h := &HTTPHandler{Catalog: catalogFunc(func(context.Context) ([]model.CatalogItem, error) { return nil, nil })}
	router := NewRouter(h, m, "")

	w, _ := do(t, router, http.MethodGet, "/api/cases/items", "")
	require.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `cs16_dashboard_http_requests_total{route="/api/cases/items",status="200"} 1`)
}
