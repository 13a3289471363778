package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/blank-marketing/blank/internal/app/progression"
	"github.com/blank-marketing/blank/internal/domain"
	"github.com/blank-marketing/blank/internal/health"
	"github.com/blank-marketing/blank/internal/infra/sqlite"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var testNow = time.Date(2025, 7, 1, 3, 0, 0, 0, time.UTC) // 12:00 KST

type testEnv struct {
	store *progression.Store
	hub   *Hub
	srv   *Server
	http  *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := zaptest.NewLogger(t)

	db, err := sqlite.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := progression.New(context.Background(), progression.Options{
		Key:        "api-test",
		Repository: db,
		Clock:      fixedClock{testNow},
		Logger:     log,
	})
	require.NoError(t, err)

	hub := NewHub(store, log)
	store.Subscribe(hub)

	srv := NewServer(store, hub, log)
	srv.EnableMetrics()

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		hub.Close()
		ts.Close()
	})
	return &testEnv{store: store, hub: hub, srv: srv, http: ts}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.http.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out), "body: %s", raw)
	return resp.StatusCode, out
}

// ─── Read Endpoints ─────────────────────────────────────────────────────────

func TestHealth_NoChecker(t *testing.T) {
	e := newTestEnv(t)
	code, body := e.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

type stubHealth struct{ healthy bool }

func (s stubHealth) Statuses() []health.Status {
	return []health.Status{{Name: "repository", Healthy: s.healthy}}
}
func (s stubHealth) IsHealthy() bool { return s.healthy }

func TestHealth_Degraded(t *testing.T) {
	e := newTestEnv(t)
	e.srv.SetHealth(stubHealth{healthy: false})
	// Handler() was already built; build a fresh one for the new checker.
	ts := httptest.NewServer(e.srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var body struct {
		Status string          `json:"status"`
		Checks []health.Status `json:"checks"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "degraded", body.Status)
	require.Len(t, body.Checks, 1)
	assert.Equal(t, "repository", body.Checks[0].Name)
}

func TestGetProgression_Defaults(t *testing.T) {
	e := newTestEnv(t)
	code, body := e.do(t, http.MethodGet, "/api/progression", "")
	require.Equal(t, http.StatusOK, code)

	state := body["state"].(map[string]any)
	assert.EqualValues(t, 0, state["totalXP"])
	assert.EqualValues(t, 1, state["level"])
	assert.Equal(t, "sprout", body["rank"].(map[string]any)["id"])
	assert.Equal(t, "2025-07-01", body["today"])
	assert.Equal(t, false, body["premiumTrialActive"])
}

func TestGetRank(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.store.AwardXP(3000)
	require.NoError(t, err)

	code, body := e.do(t, http.MethodGet, "/api/progression/rank", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "bronze", body["current"].(map[string]any)["id"])
	assert.Equal(t, "silver", body["next"].(map[string]any)["id"])
	assert.InDelta(t, 50.0, body["progress"], 0.001)
	assert.EqualValues(t, 2000, body["xpToNextRank"])
}

func TestGetCatalog(t *testing.T) {
	e := newTestEnv(t)
	code, body := e.do(t, http.MethodGet, "/api/catalog", "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["ranks"], 5)
	assert.Len(t, body["missions"], 5)
	assert.NotEmpty(t, body["rewards"])
	assert.NotEmpty(t, body["achievements"])
}

func TestGetMissions(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.store.CompleteMission("generate_title")
	require.NoError(t, err)

	code, body := e.do(t, http.MethodGet, "/api/progression/missions", "")
	require.Equal(t, http.StatusOK, code)
	missions := body["missions"].([]any)
	require.Len(t, missions, 5)
	first := missions[0].(map[string]any)
	assert.Equal(t, "generate_title", first["id"])
	assert.Equal(t, true, first["completed"])
}

// ─── Actions ────────────────────────────────────────────────────────────────

func TestAchievements(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.store.AwardXP(100)
	require.NoError(t, err)

	code, body := e.do(t, http.MethodGet, "/api/progression/achievements", "")
	require.Equal(t, http.StatusOK, code)
	list, ok := body["achievements"].([]any)
	require.True(t, ok, "achievements: %v", body)
	assert.Len(t, list, len(e.store.Catalog().Achievements))

	code, body = e.do(t, http.MethodGet, "/api/progression/achievements/xp_100", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["unlocked"])
	assert.Equal(t, "xp_100", body["id"])

	code, _ = e.do(t, http.MethodGet, "/api/progression/achievements/nope", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestLogin(t *testing.T) {
	e := newTestEnv(t)

	code, body := e.do(t, http.MethodPost, "/api/progression/login", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["counted"])
	assert.EqualValues(t, 1, body["streak"])
	assert.EqualValues(t, 10, body["xpAwarded"])

	_, body = e.do(t, http.MethodPost, "/api/progression/login", "")
	assert.Equal(t, false, body["counted"])
	assert.EqualValues(t, 10, e.store.State().TotalXP)
}

func TestAwardXP(t *testing.T) {
	e := newTestEnv(t)

	code, body := e.do(t, http.MethodPost, "/api/progression/xp", `{"amount":150}`)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 150, body["totalXP"])
	assert.ElementsMatch(t, []any{"first_step", "xp_100"}, body["achievements"])
}

func TestAwardXP_BadRequests(t *testing.T) {
	e := newTestEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{"zero", `{"amount":0}`},
		{"negative", `{"amount":-5}`},
		{"malformed", `{"amount":`},
		{"wrong type", `{"amount":"ten"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := e.do(t, http.MethodPost, "/api/progression/xp", tt.body)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Contains(t, body, "error")
		})
	}
	assert.Zero(t, e.store.State().TotalXP)
}

func TestAwardXP_Overflow(t *testing.T) {
	e := newTestEnv(t)
	code, _ := e.do(t, http.MethodPost, "/api/progression/xp", `{"amount":100}`)
	require.Equal(t, http.StatusOK, code)

	code, _ = e.do(t, http.MethodPost, "/api/progression/xp", `{"amount":9223372036854775807}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.EqualValues(t, 100, e.store.State().TotalXP)
}

func TestCompleteMission(t *testing.T) {
	e := newTestEnv(t)

	code, body := e.do(t, http.MethodPost, "/api/progression/missions/keyword_research/complete", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["ok"])
	assert.EqualValues(t, 30, e.store.State().TotalXP)

	code, body = e.do(t, http.MethodPost, "/api/progression/missions/keyword_research/complete", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, ReasonAlreadyCompleted, body["reason"])
	assert.EqualValues(t, 30, e.store.State().TotalXP)
}

func TestCompleteMission_Unknown(t *testing.T) {
	e := newTestEnv(t)
	code, _ := e.do(t, http.MethodPost, "/api/progression/missions/nope/complete", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestPurchaseReward(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.store.AwardXP(500)
	require.NoError(t, err)

	code, body := e.do(t, http.MethodPost, "/api/progression/rewards/extra_analysis/purchase", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["ok"])

	st := e.store.State()
	assert.EqualValues(t, 300, st.CurrentXP)
	assert.EqualValues(t, 500, st.TotalXP)
	assert.Equal(t, 1, st.BonusAnalysisCount)
}

func TestPurchaseReward_InsufficientXP(t *testing.T) {
	e := newTestEnv(t)
	before := e.store.State()

	code, body := e.do(t, http.MethodPost, "/api/progression/rewards/premium_trial_7d/purchase", "")
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, ReasonInsufficientXP, body["reason"])
	assert.Equal(t, before, e.store.State())
}

func TestPurchaseReward_Unknown(t *testing.T) {
	e := newTestEnv(t)
	code, _ := e.do(t, http.MethodPost, "/api/progression/rewards/free_money/purchase", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestConsumeBonus(t *testing.T) {
	e := newTestEnv(t)

	code, body := e.do(t, http.MethodPost, "/api/progression/bonus-analysis/consume", "")
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, ReasonNoCredits, body["reason"])

	_, err := e.store.AwardXP(200)
	require.NoError(t, err)
	ok, err := e.store.PurchaseReward("extra_analysis")
	require.NoError(t, err)
	require.True(t, ok)

	code, body = e.do(t, http.MethodPost, "/api/progression/bonus-analysis/consume", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["ok"])
	assert.Zero(t, e.store.State().BonusAnalysisCount)
}

func TestRedemptions(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.store.AwardXP(1000)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		ok, err := e.store.PurchaseReward("extra_analysis")
		require.NoError(t, err)
		require.True(t, ok)
	}

	code, body := e.do(t, http.MethodGet, "/api/progression/redemptions?limit=2", "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["redemptions"], 2)

	_, body = e.do(t, http.MethodGet, "/api/progression/redemptions", "")
	assert.Len(t, body["redemptions"], 3)

	code, _ = e.do(t, http.MethodGet, "/api/progression/redemptions?limit=x", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestReset(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.store.AwardXP(2000)
	require.NoError(t, err)

	code, body := e.do(t, http.MethodDelete, "/api/progression", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["ok"])
	assert.Zero(t, e.store.State().TotalXP)
}

// ─── Middleware ─────────────────────────────────────────────────────────────

func TestCORS(t *testing.T) {
	e := newTestEnv(t)
	e.srv.SetCORSOrigins([]string{"https://blank.example"})
	ts := httptest.NewServer(e.srv.Handler())
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/progression", nil)
	req.Header.Set("Origin", "https://blank.example")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "https://blank.example", resp.Header.Get("Access-Control-Allow-Origin"))

	req, _ = http.NewRequest(http.MethodGet, ts.URL+"/api/progression", nil)
	req.Header.Set("Origin", "https://evil.example")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestCORS_RefusesForeignOrigins(t *testing.T) {
	e := newTestEnv(t)
	mustDo := func(method, path, origin string) *http.Response {
		t.Helper()
		req, err := http.NewRequest(method, e.http.URL+path, strings.NewReader(`{"amount":5000}`))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Origin", origin)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp
	}

	// No origins configured: only the server's own origin may write.
	resp := mustDo(http.MethodOptions, "/api/progression", "https://evil.example")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))

	resp = mustDo(http.MethodPost, "/api/progression/xp", "https://evil.example")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp = mustDo(http.MethodDelete, "/api/progression", "https://evil.example")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Zero(t, e.store.State().TotalXP)

	resp = mustDo(http.MethodPost, "/api/progression/xp", e.http.URL)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 5000, e.store.State().TotalXP)
}

func TestMutations_RequireJSON(t *testing.T) {
	e := newTestEnv(t)

	for _, ct := range []string{"", "text/plain", "application/x-www-form-urlencoded"} {
		req, err := http.NewRequest(http.MethodPost, e.http.URL+"/api/progression/login", nil)
		require.NoError(t, err)
		if ct != "" {
			req.Header.Set("Content-Type", ct)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode, "content type %q", ct)
	}
	assert.Zero(t, e.store.State().LoginStreak)

	code, _ := e.do(t, http.MethodPost, "/api/progression/login", "")
	assert.Equal(t, http.StatusOK, code)
}

func TestMetricsEndpoint(t *testing.T) {
	e := newTestEnv(t)
	e.do(t, http.MethodPost, "/api/progression/login", "")

	resp, err := http.Get(e.http.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, bytes.Contains(raw, []byte("blank_logins_total")))
	assert.True(t, bytes.Contains(raw, []byte("blank_http_request_duration_seconds")))
}

// ─── Live Feed ──────────────────────────────────────────────────────────────

func dialLive(t *testing.T, e *testEnv) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.http.URL, "http") + "/api/progression/live"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readLive(t *testing.T, conn *websocket.Conn) LiveMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg LiveMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestLive_SnapshotThenEvents(t *testing.T) {
	e := newTestEnv(t)
	conn := dialLive(t, e)

	snap := readLive(t, conn)
	assert.Equal(t, MsgSnapshot, snap.Type)
	assert.Nil(t, snap.Event)
	assert.Equal(t, "sprout", snap.View.Rank.ID)

	require.Eventually(t, func() bool { return e.hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	_, err := e.store.AwardXP(1000)
	require.NoError(t, err)

	var types []string
	for {
		msg := readLive(t, conn)
		types = append(types, msg.Type)
		if msg.Type == string(domain.EventRankUp) {
			require.NotNil(t, msg.Event)
			assert.Equal(t, "bronze", msg.Event.RankID)
			assert.EqualValues(t, 1000, msg.View.State.TotalXP)
			break
		}
	}
	assert.Contains(t, types, string(domain.EventAchievementUnlocked))
	assert.Contains(t, types, string(domain.EventXPAwarded))
}

func TestLive_DisconnectRemovesClient(t *testing.T) {
	e := newTestEnv(t)
	conn := dialLive(t, e)
	readLive(t, conn)
	require.Eventually(t, func() bool { return e.hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return e.hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestLive_RejectsForeignOrigin(t *testing.T) {
	e := newTestEnv(t)
	e.hub.SetAllowedOrigins([]string{"https://blank.example"})

	url := "ws" + strings.TrimPrefix(e.http.URL, "http") + "/api/progression/live"
	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHub_CloseDisconnectsClients(t *testing.T) {
	e := newTestEnv(t)
	conn := dialLive(t, e)
	readLive(t, conn)
	require.Eventually(t, func() bool { return e.hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	e.hub.Close()
	assert.Zero(t, e.hub.ClientCount())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestHub_BroadcastWhileRemoving(t *testing.T) {
	hub := NewHub(nil, zaptest.NewLogger(t))
	clients := make([]*client, 50)
	for i := range clients {
		// No write pump: buffers fill up and take the slow-client path.
		clients[i] = &client{send: make(chan []byte, 1)}
		hub.clients[clients[i]] = struct{}{}
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				hub.broadcast([]byte("x"))
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for _, c := range clients {
			hub.RemoveClient(c)
		}
		hub.Close()
	}()
	wg.Wait()

	assert.Zero(t, hub.ClientCount())
}

func TestHub_PublishWithoutClients(t *testing.T) {
	hub := NewHub(nil, nil)
	// No clients: Publish must not touch the nil source.
	hub.Publish(domain.Event{Type: domain.EventLogin})
	assert.Zero(t, hub.ClientCount())
}
