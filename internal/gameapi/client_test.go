package gameapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cocheuno/HawkOps-sub002/internal/model"
)

const (
	testGame = "game-1"
	testTeam = "team-1"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func mockServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for pattern, h := range handlers {
		mux.HandleFunc(pattern, h)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, baseURL, token string) *Client {
	t.Helper()
	c, err := NewClient(Config{
		BaseURL: baseURL + "/",
		GameID:  testGame,
		TeamID:  testTeam,
		Token:   token,
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	return c
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)},
		PlayerID:         "player-7",
		TeamID:           testTeam,
		GameID:           testGame,
	})
	s, err := tok.SignedString([]byte("server-secret"))
	require.NoError(t, err)
	return s
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

func TestNewClient_RequiresFields(t *testing.T) {
	full := Config{BaseURL: "http://x", GameID: "g", TeamID: "t", Token: "tok"}
	for name, mutate := range map[string]func(*Config){
		"base url": func(c *Config) { c.BaseURL = "" },
		"game":     func(c *Config) { c.GameID = "" },
		"team":     func(c *Config) { c.TeamID = "" },
		"token":    func(c *Config) { c.Token = "" },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := full
			mutate(&cfg)
			_, err := NewClient(cfg)
			assert.Error(t, err)
		})
	}

	c, err := NewClient(full)
	require.NoError(t, err)
	assert.True(t, c.TokenExpiry().IsZero(), "opaque tokens carry no expiry")
}

func TestInspectToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	claims, err := InspectToken(signedToken(t, exp))
	require.NoError(t, err)
	assert.Equal(t, "player-7", claims.PlayerID)
	assert.Equal(t, testTeam, claims.TeamID)
	assert.True(t, exp.Equal(claims.Expiry()))

	_, err = InspectToken("not-a-jwt")
	assert.Error(t, err)

	var nilClaims *Claims
	assert.True(t, nilClaims.Expiry().IsZero())
}

// ---------------------------------------------------------------------------
// State source
// ---------------------------------------------------------------------------

func TestFetchState(t *testing.T) {
	incID := uuid.New()
	var gotAuth string
	srv := mockServer(t, map[string]http.HandlerFunc{
		"GET /api/games/game-1/teams/team-1/state": func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			writeJSON(w, http.StatusOK, map[string]any{
				"data": map[string]any{
					"game": map[string]any{"id": testGame, "status": "active", "currentRound": 2},
					"team": map[string]any{"id": testTeam, "budgetRemaining": 42000.5, "moraleLevel": 71},
					"incidents": []map[string]any{{
						"id":             incID,
						"incidentNumber": "INC-0001",
						"priority":       "critical",
						"status":         "open",
						"slaDeadline":    "2026-03-02T10:30:00Z",
						"assignedTeamId": testTeam,
					}},
					"changeRequests": []map[string]any{{
						"id":            uuid.New(),
						"changeNumber":  "CHG-0001",
						"changeType":    "emergency",
						"workflowState": "pending_cab",
					}},
				},
			})
		},
	})

	c := newTestClient(t, srv.URL, "opaque-token")
	snap, err := c.FetchState(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Bearer opaque-token", gotAuth)
	assert.Equal(t, 2, snap.Game.CurrentRound)
	assert.Equal(t, 71, snap.Team.Morale)
	assert.InDelta(t, 42000.5, snap.Team.Budget, 0.001)
	require.Len(t, snap.Incidents, 1)
	assert.Equal(t, incID, snap.Incidents[0].ID)
	assert.Equal(t, model.PriorityCritical, snap.Incidents[0].Priority)
	require.NotNil(t, snap.Incidents[0].SLADeadline)
	require.Len(t, snap.ChangeRequests, 1)
	assert.Equal(t, model.WorkflowPendingCAB, snap.ChangeRequests[0].WorkflowState)
}

func TestFetchState_Unwrapped(t *testing.T) {
	srv := mockServer(t, map[string]http.HandlerFunc{
		"GET /api/games/game-1/teams/team-1/state": func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"team": map[string]any{"id": testTeam, "moraleLevel": 55}})
		},
	})
	snap, err := newTestClient(t, srv.URL, "tok").FetchState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 55, snap.Team.Morale)
}

// ---------------------------------------------------------------------------
// Action sink
// ---------------------------------------------------------------------------

func TestActionRequests(t *testing.T) {
	id := uuid.New()
	got := map[string]map[string]any{}
	record := func(key string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			got[key] = decodeBody(t, r)
			writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"ok": true}})
		}
	}
	inc := "/api/games/game-1/incidents/" + id.String()
	chg := "/api/games/game-1/change-requests/" + id.String()
	srv := mockServer(t, map[string]http.HandlerFunc{
		"PATCH " + inc + "/status":          record("status"),
		"POST " + inc + "/escalate":         record("escalate"),
		"POST " + inc + "/plans":            record("plan"),
		"POST " + chg + "/approve":          record("approve"),
		"POST " + chg + "/reject":           record("reject"),
		"POST " + chg + "/technical-review": record("review"),
	})
	c := newTestClient(t, srv.URL, "tok")
	ctx := context.Background()

	require.NoError(t, c.SetIncidentStatus(ctx, id, model.StatusInProgress))
	require.NoError(t, c.Escalate(ctx, id, "needs tech ops"))
	require.NoError(t, c.ApproveChange(ctx, id, "looks good"))
	require.NoError(t, c.RejectChange(ctx, id, "no rollback"))
	require.NoError(t, c.SubmitTechnicalReview(ctx, id, "checked", "approve"))
	require.NoError(t, c.SubmitPlan(ctx, id, model.ImplementationPlan{IncidentID: id, Title: "Fix", Steps: []string{"a"}}))

	assert.Equal(t, "in_progress", got["status"]["status"])
	assert.Equal(t, "needs tech ops", got["escalate"]["reason"])
	assert.Equal(t, "looks good", got["approve"]["notes"])
	assert.Equal(t, "no rollback", got["reject"]["notes"])
	assert.Equal(t, "approve", got["review"]["recommendation"])
	plan, ok := got["plan"]["plan"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Fix", plan["title"])
}

func TestErrors(t *testing.T) {
	id := uuid.New()
	srv := mockServer(t, map[string]http.HandlerFunc{
		"POST /api/games/game-1/incidents/{id}/escalate": func(w http.ResponseWriter, r *http.Request) {
			switch r.PathValue("id") {
			case id.String():
				writeJSON(w, http.StatusNotFound, map[string]any{"error": "Incident not found"})
			default:
				writeJSON(w, http.StatusBadGateway, map[string]any{"error": map[string]any{"code": "upstream", "message": "db unavailable"}})
			}
		},
		"PATCH /api/games/game-1/incidents/{id}/status": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte("already resolved"))
		},
	})
	c := newTestClient(t, srv.URL, "tok")
	ctx := context.Background()

	err := c.Escalate(ctx, id, "x")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsTransient(err))
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Incident not found", apiErr.Message)
	assert.Equal(t, http.MethodPost, apiErr.Method)

	err = c.Escalate(ctx, uuid.New(), "x")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "upstream", apiErr.Code)
	assert.Equal(t, "db unavailable", apiErr.Message)
	assert.True(t, IsTransient(err))

	err = c.SetIncidentStatus(ctx, id, model.StatusResolved)
	assert.True(t, IsConflict(err))
	assert.Contains(t, err.Error(), "already resolved")
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestClient(t, url, "tok").FetchState(context.Background())
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.False(t, IsNotFound(err))
}

func TestExpiredTokenSendsNothing(t *testing.T) {
	var hits atomic.Int32
	srv := mockServer(t, map[string]http.HandlerFunc{
		"GET /api/games/game-1/teams/team-1/state": func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{}})
		},
	})

	c := newTestClient(t, srv.URL, signedToken(t, time.Now().Add(-time.Minute)))
	_, err := c.FetchState(context.Background())
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.False(t, IsTransient(err))
	assert.Zero(t, hits.Load())

	c = newTestClient(t, srv.URL, signedToken(t, time.Now().Add(time.Hour)))
	_, err = c.FetchState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}
