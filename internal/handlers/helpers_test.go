package handlers

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/damacus/s3-manager/internal/models"
	"github.com/damacus/s3-manager/internal/navigation"
	"github.com/damacus/s3-manager/internal/renderer"
	"github.com/damacus/s3-manager/internal/services"
	"github.com/damacus/s3-manager/internal/store"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockObjectStore struct {
	mock.Mock
}

func (m *mockObjectStore) List(ctx context.Context, prefix string) ([]models.ObjectEntry, error) {
	args := m.Called(ctx, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ObjectEntry), args.Error(1)
}

func (m *mockObjectStore) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	args := m.Called(ctx, key, reader, size, contentType)
	return args.Error(0)
}

func (m *mockObjectStore) Download(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockObjectStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type mockFactory struct {
	mock.Mock
}

func (m *mockFactory) NewClient(cfg models.StorageConfig) (services.ObjectStore, error) {
	args := m.Called(cfg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(services.ObjectStore), args.Error(1)
}

type testEnv struct {
	e       *echo.Echo
	browser *navigation.Browser
	configs *store.FileStore
	factory *mockFactory
	client  *mockObjectStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	box, err := services.NewSecretBox([]byte("12345678901234567890123456789012"))
	require.NoError(t, err)
	configs, err := store.Open(filepath.Join(t.TempDir(), "configs.json"), box)
	require.NoError(t, err)

	r, err := renderer.New("../../views")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	factory := new(mockFactory)
	browser := navigation.NewBrowser(configs, factory, logger)

	e := echo.New()
	e.Renderer = r

	browserHandler := NewBrowserHandler(browser, false, logger)
	configsHandler := NewConfigsHandler(browser, logger)
	e.GET("/", browserHandler.Index)
	e.GET("/browse", browserHandler.Browse)
	e.GET("/browse/up", browserHandler.Up)
	e.POST("/objects/upload", browserHandler.Upload)
	e.GET("/objects/download", browserHandler.Download)
	e.POST("/objects/delete", browserHandler.Delete)
	e.GET("/configs/create", configsHandler.CreateModal)
	e.POST("/configs/create", configsHandler.Create)
	e.GET("/configs/:id/edit", configsHandler.EditModal)
	e.POST("/configs/:id/edit", configsHandler.Edit)
	e.POST("/configs/:id/delete", configsHandler.Delete)
	e.POST("/configs/:id/select", configsHandler.Select)
	e.POST("/configs/deselect", configsHandler.Deselect)

	return &testEnv{
		e:       e,
		browser: browser,
		configs: configs,
		factory: factory,
		client:  new(mockObjectStore),
	}
}

// activate adds a configuration and selects it with root listing entries
func (env *testEnv) activate(t *testing.T, root []models.ObjectEntry) models.StorageConfig {
	t.Helper()
	cfg, err := env.configs.Add(models.StorageConfig{Name: "primary", Bucket: "b", AccessKeyID: "AK", SecretAccessKey: "SK"})
	require.NoError(t, err)
	env.factory.On("NewClient", cfg).Return(env.client, nil)
	env.client.On("List", mock.Anything, "").Return(root, nil).Once()
	require.NoError(t, env.browser.Select(context.Background(), cfg.ID))
	return cfg
}

func (env *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func htmx(req *http.Request) *http.Request {
	req.Header.Set("HX-Request", "true")
	return req
}

func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/objects/upload", body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	return htmx(req)
}
