// Package server_test contains the unit tests for the server package.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ASHISH26940/formrelay/internal/config"
	"github.com/ASHISH26940/formrelay/internal/form"
	"github.com/ASHISH26940/formrelay/internal/metrics"
	"github.com/ASHISH26940/formrelay/internal/relay"
	"github.com/ASHISH26940/formrelay/internal/store"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSender records relayed payloads instead of sending datagrams.
type mockSender struct {
	mu       sync.Mutex
	payloads [][]byte
	err      error
}

func (m *mockSender) Send(ctx context.Context, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payloads = append(m.payloads, append([]byte(nil), payload...))
	return m.err
}

func (m *mockSender) Payloads() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.payloads
}

// newSite writes a small document root and returns a config pointing at it.
func newSite(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"index.html":      "<h1>home</h1>",
		"error.html":      "<h1>not here</h1>",
		"message.html":    "<h1>thanks</h1>",
		"css/style.css":   "body {}",
		"notes.unknownxt": "plain",
	}
	for name, body := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0644))
	}

	cfg := config.New()
	cfg.DocRoot = root
	return cfg
}

func do(srv http.Handler, method, target string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	return rr
}

func TestStaticHandlers(t *testing.T) {
	cfg := newSite(t)
	sender := &mockSender{}
	srv := New(cfg, sender, nil, nil)

	// --- Test Case 1: "/" serves the index document ---
	root := do(srv, http.MethodGet, "/", nil)
	index := do(srv, http.MethodGet, "/index.html", nil)
	assert.Equal(t, http.StatusOK, root.Code)
	assert.Equal(t, "<h1>home</h1>", root.Body.String())
	assert.Equal(t, index.Body.String(), root.Body.String())
	assert.Equal(t, index.Header().Get("Content-Type"), root.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(root.Header().Get("Content-Type"), "text/html"))

	// --- Test Case 2: nested file with its own type ---
	css := do(srv, http.MethodGet, "/css/style.css", nil)
	assert.Equal(t, http.StatusOK, css.Code)
	assert.True(t, strings.HasPrefix(css.Header().Get("Content-Type"), "text/css"))

	// --- Test Case 3: unknown extension defaults to text/plain ---
	plain := do(srv, http.MethodGet, "/notes.unknownxt", nil)
	assert.Equal(t, http.StatusOK, plain.Code)
	assert.Equal(t, "text/plain", plain.Header().Get("Content-Type"))

	// --- Test Case 4: missing file serves the error document ---
	missing := do(srv, http.MethodGet, "/nope.html", nil)
	assert.Equal(t, http.StatusNotFound, missing.Code)
	assert.Equal(t, "<h1>not here</h1>", missing.Body.String())

	// --- Test Case 5: directories and escapes are not found ---
	assert.Equal(t, http.StatusNotFound, do(srv, http.MethodGet, "/css", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(srv, http.MethodGet, "/../../etc/passwd", nil).Code)

	// GET never relays.
	assert.Empty(t, sender.Payloads())
}

func TestMissingErrorDocument(t *testing.T) {
	cfg := newSite(t)
	cfg.ErrorDocument = "absent.html"
	srv := New(cfg, &mockSender{}, nil, nil)

	rr := do(srv, http.MethodGet, "/nope.html", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPostRelaysRawBody(t *testing.T) {
	cfg := newSite(t)
	sender := &mockSender{}
	rec := metrics.New("test")
	srv := New(cfg, sender, rec, nil)

	rr := do(srv, http.MethodPost, "/contact", strings.NewReader("name=Jane+Doe&email="))

	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/message.html", rr.Header().Get("Location"))
	require.Len(t, sender.Payloads(), 1)
	assert.Equal(t, "name=Jane+Doe&email=", string(sender.Payloads()[0]))

	sub, err := form.Decode(sender.Payloads()[0])
	require.NoError(t, err)
	assert.Equal(t, form.Submission{"name": "Jane Doe"}, sub)

	assert.Equal(t, 1.0, testutil.ToFloat64(rec.RelaySends().WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.HTTPRequests().WithLabelValues("POST", "302")))
}

func TestPostWithoutBodySendsNothing(t *testing.T) {
	cfg := newSite(t)
	sender := &mockSender{}
	srv := New(cfg, sender, nil, nil)

	rr := do(srv, http.MethodPost, "/", nil)

	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/message.html", rr.Header().Get("Location"))
	assert.Empty(t, sender.Payloads())
}

func TestPostRelayFailureStillRedirects(t *testing.T) {
	cfg := newSite(t)
	sender := &mockSender{err: errors.New("connection refused")}
	rec := metrics.New("test")
	srv := New(cfg, sender, rec, nil)

	rr := do(srv, http.MethodPost, "/", strings.NewReader("a=b"))

	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/message.html", rr.Header().Get("Location"))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.RelaySends().WithLabelValues("error")))
}

func TestUnsupportedMethod(t *testing.T) {
	srv := New(newSite(t), &mockSender{}, nil, nil)
	rr := do(srv, http.MethodDelete, "/index.html", nil)
	assert.Equal(t, http.StatusNotImplemented, rr.Code)
}

// TestEndToEnd runs the HTTP front end and the relay listener as services
// and checks that two POSTs land in the record store under distinct keys.
func TestEndToEnd(t *testing.T) {
	cfg := newSite(t)
	ctx := context.Background()

	rs := store.NewStore(filepath.Join(t.TempDir(), "storage", "data.json"), nil)
	listener := relay.NewListener("127.0.0.1:0", cfg.RelayBufferSize, rs)
	require.NoError(t, listener.Start(ctx))
	go listener.Run(ctx)
	defer listener.Stop(ctx)

	srv := New(cfg, relay.NewUDPSender(listener.Addr().String()), nil, nil)
	svc := NewService("http", "127.0.0.1:0", srv, nil)
	require.NoError(t, svc.Start(ctx))
	go svc.Run(ctx)
	defer svc.Stop(ctx)

	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}
	base := "http://" + svc.Addr().String()

	post := func(body string) {
		resp, err := client.Post(base+"/", "application/x-www-form-urlencoded", strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/message.html", resp.Header.Get("Location"))
	}

	post("name=Jane+Doe&email=")
	require.Eventually(t, func() bool { return len(rs.Records()) == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(time.Millisecond)
	post("name=John&email=john%40example.com")
	require.Eventually(t, func() bool { return len(rs.Records()) == 2 }, 2*time.Second, 10*time.Millisecond)

	records := rs.Records()
	keys := records.Keys()
	assert.Equal(t, form.Submission{"name": "Jane Doe"}, records[keys[0]])
	assert.Equal(t, form.Submission{"name": "John", "email": "john@example.com"}, records[keys[1]])

	resp, err := client.Get(base + "/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "<h1>home</h1>", string(body))
}

func TestService_StopBeforeRun(t *testing.T) {
	svc := NewService("http", "127.0.0.1:0", http.NotFoundHandler(), nil)
	ctx := context.Background()
	require.NoError(t, svc.Start(ctx))
	require.NoError(t, svc.Stop(ctx))
	assert.NoError(t, svc.Run(ctx))
}
