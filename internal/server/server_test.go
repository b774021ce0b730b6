package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/reactor/internal/config"
	"github.com/vango-dev/reactor/pkg/reactive"
	"github.com/vango-dev/reactor/pkg/script"
	"github.com/vango-dev/reactor/pkg/view"
)

func testConfig(t *testing.T, mutate func(*config.Config)) *config.Config {
	t.Helper()
	cfg, err := config.Load("", nil)
	require.NoError(t, err)
	cfg.Script = "testdata/cart.star"
	if mutate != nil {
		mutate(cfg)
	}
	return cfg
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, mutate func(*config.Config), opts ...Option) (*Server, *httptest.Server) {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger()), WithRegistry(prometheus.NewRegistry())}, opts...)
	s, err := New(testConfig(t, mutate), opts...)
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.Hub().Close()
		ts.Close()
	})
	return s, ts
}

type response struct {
	status int
	body   []byte
}

func (r response) json(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.body, v), string(r.body))
}

func (r response) errorCode(t *testing.T) string {
	t.Helper()
	var e errorBody
	r.json(t, &e)
	return e.Code
}

func do(t *testing.T, ts *httptest.Server, method, path, body string) response {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return response{status: resp.StatusCode, body: data}
}

func TestGetState(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp := do(t, ts, http.MethodGet, "/api/state", "")
	require.Equal(t, http.StatusOK, resp.status)
	var state map[string]any
	resp.json(t, &state)
	assert.Equal(t, []any{}, state["cart"])
	assert.Equal(t, 0.08, state["taxRate"])
	assert.Equal(t, 0.0, state["cartCount"])
	assert.Equal(t, 0.0, state["cartTotal"])
}

func TestGetKey(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp := do(t, ts, http.MethodGet, "/api/state/cartTotal", "")
	require.Equal(t, http.StatusOK, resp.status)
	var p property
	resp.json(t, &p)
	assert.Equal(t, "cartTotal", p.Key)
	assert.True(t, p.Computed)
	assert.Equal(t, []string{"#total"}, p.Bindings)

	resp = do(t, ts, http.MethodGet, "/api/state/discount", "")
	assert.Equal(t, http.StatusNotFound, resp.status)
	assert.Equal(t, "R003", resp.errorCode(t))
}

func TestPutKey(t *testing.T) {
	s, ts := newTestServer(t, nil)

	resp := do(t, ts, http.MethodPut, "/api/state/cart", `[{"name": "apple", "price": 10, "qty": 2}]`)
	require.Equal(t, http.StatusOK, resp.status, string(resp.body))
	var p property
	resp.json(t, &p)
	assert.False(t, p.Computed)

	_ = s.Session().Do(context.Background(), func(st *script.Store) error {
		item := st.Get("cart").([]any)[0].(map[string]any)
		assert.Equal(t, int64(10), item["price"], "integral JSON numbers decode to int64")
		assert.Equal(t, int64(1), st.Get("cartCount"))
		assert.InDelta(t, 21.6, st.Get("cartTotal"), 1e-9)
		return nil
	})

	resp = do(t, ts, http.MethodPut, "/api/state/taxRate", `0.5`)
	require.Equal(t, http.StatusOK, resp.status)
	resp = do(t, ts, http.MethodGet, "/api/state/cartTotal", "")
	resp.json(t, &p)
	assert.InDelta(t, 30.0, p.Value, 1e-9)
}

func TestPutKeyErrors(t *testing.T) {
	_, ts := newTestServer(t, nil)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   string
	}{
		{"reserved key", "/api/state/watch", `1`, http.StatusBadRequest, "R001"},
		{"invalid json", "/api/state/x", `{nope`, http.StatusBadRequest, ""},
		{"trailing data", "/api/state/x", `1 2`, http.StatusBadRequest, ""},
		{"missing body", "/api/state/x", ``, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, ts, http.MethodPut, tt.path, tt.body)
			assert.Equal(t, tt.status, resp.status)
			assert.Equal(t, tt.code, resp.errorCode(t))
		})
	}
}

func TestPutKeyCycleConflict(t *testing.T) {
	s, ts := newTestServer(t, func(c *config.Config) { c.Script = "" })

	_ = s.Session().Do(context.Background(), func(st *script.Store) error {
		require.NoError(t, st.Set("seed", int64(1)))
		require.NoError(t, st.Computed("a", func(s *reactive.Store) any {
			b, _ := s.Get("b").(int64)
			return b + s.Get("seed").(int64)
		}))
		require.ErrorIs(t, st.Computed("b", func(s *reactive.Store) any {
			return s.Get("a").(int64) + 1
		}), reactive.ErrCyclicDependency)
		return nil
	})

	resp := do(t, ts, http.MethodPut, "/api/state/seed", `5`)
	assert.Equal(t, http.StatusConflict, resp.status)
	assert.Equal(t, "R004", resp.errorCode(t))
}

func TestPatchState(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp := do(t, ts, http.MethodPatch, "/api/state",
		`[{"key": "taxRate", "value": 0.5}, {"key": "cart", "value": [{"name": "a", "price": 10.0, "qty": 1}]}]`)
	require.Equal(t, http.StatusOK, resp.status, string(resp.body))
	var state map[string]any
	resp.json(t, &state)
	assert.InDelta(t, 15.0, state["cartTotal"], 1e-9)

	resp = do(t, ts, http.MethodPatch, "/api/state",
		`[{"key": "get", "value": 1}, {"key": "taxRate", "value": 0.1}]`)
	assert.Equal(t, http.StatusBadRequest, resp.status)
	assert.Equal(t, "R001", resp.errorCode(t))

	resp = do(t, ts, http.MethodGet, "/api/state/taxRate", "")
	var p property
	resp.json(t, &p)
	assert.Equal(t, 0.1, p.Value, "fields after a rejected key are still applied")

	resp = do(t, ts, http.MethodPatch, "/api/state", `{"taxRate": 1}`)
	assert.Equal(t, http.StatusBadRequest, resp.status)
}

func TestReset(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp := do(t, ts, http.MethodPost, "/api/actions/add_item", `["pear", 2.5, 2]`)
	require.Equal(t, http.StatusOK, resp.status, string(resp.body))

	resp = do(t, ts, http.MethodPost, "/api/reset", "")
	require.Equal(t, http.StatusOK, resp.status)
	var state map[string]any
	resp.json(t, &state)
	assert.Equal(t, []any{}, state["cart"])
	assert.Equal(t, 0.0, state["cartCount"])
	assert.NotContains(t, state, "lastTotal")

	resp = do(t, ts, http.MethodPost, "/api/reset", `{"taxRate": 0.2}`)
	require.Equal(t, http.StatusOK, resp.status)
	state = nil
	resp.json(t, &state)
	assert.Equal(t, 0.2, state["taxRate"])
	assert.NotContains(t, state, "cart")
	assert.Contains(t, state, "cartTotal", "computed properties survive reset")
}

func TestComputedAndActions(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp := do(t, ts, http.MethodGet, "/api/computed", "")
	require.Equal(t, http.StatusOK, resp.status)
	var infos []computedInfo
	resp.json(t, &infos)
	byName := make(map[string][]string)
	for _, c := range infos {
		byName[c.Name] = c.Dependencies
	}
	assert.Len(t, byName, 4)
	assert.Equal(t, []string{"cart"}, byName["cartCount"])
	assert.ElementsMatch(t, []string{"cartSubtotal", "cartTax"}, byName["cartTotal"])

	resp = do(t, ts, http.MethodGet, "/api/actions", "")
	var names []string
	resp.json(t, &names)
	assert.Equal(t, []string{"add_item", "clear", "set_rate"}, names)
}

func TestCallAction(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp := do(t, ts, http.MethodPost, "/api/actions/add_item", `["pear", 2.5, 2]`)
	require.Equal(t, http.StatusOK, resp.status, string(resp.body))
	var out map[string]any
	resp.json(t, &out)
	assert.Equal(t, 1.0, out["result"])

	resp = do(t, ts, http.MethodPost, "/api/actions/clear", "")
	assert.Equal(t, http.StatusOK, resp.status)

	resp = do(t, ts, http.MethodPost, "/api/actions/checkout", "")
	assert.Equal(t, http.StatusNotFound, resp.status)
	assert.Equal(t, "S004", resp.errorCode(t))

	resp = do(t, ts, http.MethodPost, "/api/actions/add_item", `["pear"]`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.status)
	assert.Equal(t, "S007", resp.errorCode(t))
}

func TestPage(t *testing.T) {
	_, ts := newTestServer(t, func(c *config.Config) { c.View.Page = "testdata/page.html" })

	page := func() *view.Document {
		resp := do(t, ts, http.MethodGet, "/", "")
		require.Equal(t, http.StatusOK, resp.status)
		doc, err := view.ParseDocument(bytes.NewReader(resp.body))
		require.NoError(t, err)
		return doc
	}

	text, err := page().Text(`[data-reactive="cartTotal"]`)
	require.NoError(t, err)
	assert.Equal(t, "0.00", text, "values are pushed to the page on load")

	resp := do(t, ts, http.MethodPost, "/api/actions/add_item", `["pear", 2.5, 2]`)
	require.Equal(t, http.StatusOK, resp.status)

	doc := page()
	text, err = doc.Text(`[data-reactive="cartSubtotal"]`)
	require.NoError(t, err)
	assert.Equal(t, "5.00", text)
	text, err = doc.Text(`[data-reactive="cartCount"]`)
	require.NoError(t, err)
	assert.Equal(t, "1", text)
	text, err = doc.Text("#total")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "5.4"), "bound element shows the plain value, got %q", text)
}

func TestNoPageRoute(t *testing.T) {
	_, ts := newTestServer(t, nil)
	assert.Equal(t, http.StatusNotFound, do(t, ts, http.MethodGet, "/", "").status)
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t, nil)

	do(t, ts, http.MethodPut, "/api/state/taxRate", `0.1`)
	resp := do(t, ts, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.status)

	body := string(resp.body)
	assert.Contains(t, body, "reactor_store_writes_total")
	assert.Contains(t, body, `reactor_http_requests_total{method="PUT",route="/api/state/{key}",status="2xx"} 1`)
	assert.Contains(t, body, "reactor_ws_clients 0")
}

func TestMetricsDisabled(t *testing.T) {
	s, err := New(testConfig(t, func(c *config.Config) { c.Metrics.Enabled = false }), WithLogger(quietLogger()))
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	assert.Equal(t, http.StatusNotFound, do(t, ts, http.MethodGet, "/metrics", "").status)
}

func TestNewErrors(t *testing.T) {
	_, err := New(testConfig(t, func(c *config.Config) { c.Script = "testdata/missing.star" }), WithLogger(quietLogger()))
	var le *script.LoadError
	assert.ErrorAs(t, err, &le)

	_, err = New(testConfig(t, func(c *config.Config) { c.View.Page = "testdata/missing.html" }),
		WithLogger(quietLogger()), WithRegistry(prometheus.NewRegistry()))
	assert.ErrorContains(t, err, "open page")
}

func readMessage(t *testing.T, conn *websocket.Conn) view.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg view.Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocketUpdates(t *testing.T) {
	_, ts := newTestServer(t, nil)
	conn := dial(t, ts)

	hello := readMessage(t, conn)
	assert.Equal(t, view.MessageSnapshot, hello.Type)
	assert.Equal(t, 0.08, hello.State["taxRate"])

	resp := do(t, ts, http.MethodPost, "/api/actions/add_item", `["pear", 2.5, 2]`)
	require.Equal(t, http.StatusOK, resp.status)

	for {
		msg := readMessage(t, conn)
		require.Equal(t, view.MessageUpdate, msg.Type)
		if msg.Key == "cartTotal" {
			assert.True(t, strings.HasPrefix(msg.Text, "5.40"), msg.Text)
			assert.Equal(t, []string{"#total"}, msg.Selectors)
			break
		}
	}
}

const reloadedCart = `state = {"cart": [], "taxRate": 0.5}

def _total():
    return len(get("cart")) * get("taxRate")

computed("cartTotal", _total)
`

func TestReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cart.star")
	src, err := os.ReadFile("testdata/cart.star")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, src, 0o600))

	s, ts := newTestServer(t, func(c *config.Config) { c.Script = path })
	conn := dial(t, ts)
	readMessage(t, conn)

	require.NoError(t, os.WriteFile(path, []byte(reloadedCart), 0o600))
	require.NoError(t, s.Reload())

	var snap view.Message
	for snap.Type != view.MessageSnapshot {
		snap = readMessage(t, conn)
	}
	assert.Equal(t, 0.5, snap.State["taxRate"])
	assert.NotContains(t, snap.State, "cartCount")

	require.NoError(t, os.WriteFile(path, []byte("state = [\n"), 0o600))
	assert.Error(t, s.Reload())
	assert.Equal(t, 0.5, s.Session().Snapshot()["taxRate"], "a broken script keeps the old store")
}

func TestServeWatchesScript(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cart.star")
	src, err := os.ReadFile("testdata/cart.star")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, src, 0o600))

	s, err := New(testConfig(t, func(c *config.Config) {
		c.Script = path
		c.Watch = true
		c.Server.ShutdownTimeout = time.Second
	}), WithLogger(quietLogger()), WithRegistry(prometheus.NewRegistry()))
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	base := "http://" + ln.Addr().String()
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/api/state/taxRate")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	// The watcher may start after the first write; keep rewriting slower
	// than the reload delay until the change is picked up.
	require.Eventually(t, func() bool {
		if s.Session().Snapshot()["taxRate"] == 0.5 {
			return true
		}
		_ = os.WriteFile(path, []byte(reloadedCart), 0o600)
		return false
	}, 5*time.Second, 3*reloadDelay)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestRunListenError(t *testing.T) {
	s, err := New(testConfig(t, func(c *config.Config) { c.Server.Addr = "256.0.0.1:bad" }),
		WithLogger(quietLogger()), WithRegistry(prometheus.NewRegistry()))
	require.NoError(t, err)
	assert.ErrorContains(t, s.Run(context.Background()), "listen")
}
