package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/damacus/s3-manager/internal/metrics"
	"github.com/damacus/s3-manager/internal/models"
	"github.com/damacus/s3-manager/internal/navigation"
	"github.com/damacus/s3-manager/internal/renderer"
	"github.com/damacus/s3-manager/internal/services"
	"github.com/damacus/s3-manager/internal/services/servicestest"
	"github.com/damacus/s3-manager/internal/store"
	"github.com/stretchr/testify/require"
)

// fakeFactory builds real storage clients on top of an in-memory backend
type fakeFactory struct {
	backend  *servicestest.MemoryAPI
	logger   *slog.Logger
	observer metrics.StorageObserver
}

func (f *fakeFactory) NewClient(cfg models.StorageConfig) (services.ObjectStore, error) {
	return services.NewStorageClient(f.backend, cfg.Bucket, f.logger, f.observer), nil
}

type testServer struct {
	*httptest.Server
	backend *servicestest.MemoryAPI
	configs *store.FileStore
	browser *navigation.Browser
	client  *http.Client
	csrf    string
}

// newTestServer runs the full middleware stack against an in-memory backend holding
// bucket "b". An empty password disables the login gate.
func newTestServer(t *testing.T, password string) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	box, err := services.NewSecretBox([]byte("12345678901234567890123456789012"))
	require.NoError(t, err)
	configs, err := store.Open(filepath.Join(t.TempDir(), "configs.json"), box)
	require.NoError(t, err)
	r, err := renderer.New("../../views")
	require.NoError(t, err)

	m := metrics.New()
	backend := servicestest.NewMemoryAPI("b")
	browser := navigation.NewBrowser(configs, &fakeFactory{backend: backend, logger: logger, observer: m.Storage}, logger)

	e := newServer(serverDeps{
		logger:         logger,
		browser:        browser,
		auth:           services.NewAuthService(password, box),
		metrics:        m,
		renderer:       r,
		staticDir:      "../../views/static",
		requestTimeout: time.Minute,
	})
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &testServer{Server: srv, backend: backend, configs: configs, browser: browser, client: client}
}

var csrfPattern = regexp.MustCompile(`"X-CSRF-Token": "([A-Za-z0-9]+)"`)

// get performs a GET and remembers any CSRF token found in the page
func (s *testServer) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := s.client.Get(s.URL + path)
	require.NoError(t, err)
	return s.read(t, resp)
}

func (s *testServer) read(t *testing.T, resp *http.Response) (*http.Response, string) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if m := csrfPattern.FindStringSubmatch(string(body)); m != nil {
		s.csrf = m[1]
	}
	return resp, string(body)
}

// post sends an htmx-style request carrying the CSRF header
func (s *testServer) post(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, s.URL+path, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.send(t, req)
}

func (s *testServer) send(t *testing.T, req *http.Request) (*http.Response, string) {
	t.Helper()
	req.Header.Set("HX-Request", "true")
	req.Header.Set("X-CSRF-Token", s.csrf)
	resp, err := s.client.Do(req)
	require.NoError(t, err)
	return s.read(t, resp)
}

func (s *testServer) htmxGet(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, s.URL+path, nil)
	require.NoError(t, err)
	return s.send(t, req)
}
