package educonsent

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WhitehatD/Student-Identity-Consent/api/consentapi"
	"github.com/WhitehatD/Student-Identity-Consent/internal/version"
	"github.com/WhitehatD/Student-Identity-Consent/storage/model"
)

type failingWallets struct{}

func (failingWallets) Register(context.Context, string, string) (*model.Wallet, bool, error) {
	return nil, false, errors.New("dial tcp 10.0.0.5:5432: connection refused")
}

func (failingWallets) ByCID(context.Context, string) (*model.Wallet, error) {
	return nil, errors.New("dial tcp 10.0.0.5:5432: connection refused")
}

func (failingWallets) ByAddress(context.Context, string) (*model.Wallet, error) {
	return nil, errors.New("dial tcp 10.0.0.5:5432: connection refused")
}

func newTestServer(conf ServerConf) *Server {
	conf.AccessLog = io.Discard
	return NewServer(conf, consentapi.Deps{Wallets: failingWallets{}})
}

func doRequest(t *testing.T, s *Server, req *http.Request) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	if strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(raw, &body))
	}
	return resp, body
}

func TestHealth(t *testing.T) {
	s := newTestServer(ServerConf{})
	resp, body := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", body["status"])
	assert.Equal(t, version.VERSION, body["version"])
	assert.NotEmpty(t, body["timestamp"])
	assert.GreaterOrEqual(t, body["uptime"].(float64), 0.0)

	_, err := uuid.Parse(resp.Header.Get(fiber.HeaderXRequestID))
	assert.NoError(t, err, "request ids are uuids")
}

func TestPathPrefix(t *testing.T) {
	s := newTestServer(ServerConf{})
	resp, body := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/api/data-types", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, body["dataTypes"], 3)

	s = newTestServer(ServerConf{PathPrefix: "/v1"})
	resp, _ = doRequest(t, s, httptest.NewRequest(http.MethodGet, "/v1/data-types", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestNotFound(t *testing.T) {
	s := newTestServer(ServerConf{})
	resp, body := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/api/nothing-here", nil))
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Not Found", body["error"])
	assert.Equal(t, "Route GET /api/nothing-here not found", body["message"])
	endpoints := body["availableEndpoints"].([]any)
	assert.Contains(t, endpoints, "GET /api/data-types")
	assert.Contains(t, endpoints, "POST /api/blockchain/check-consents")
	assert.Contains(t, endpoints, "GET /health")
}

func TestUnexpectedErrorsAreHidden(t *testing.T) {
	const path = "/api/wallet/0x1111111111111111111111111111111111111111"

	s := newTestServer(ServerConf{})
	resp, body := doRequest(t, s, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Internal server error", body["error"])
	assert.Equal(t, genericErrorMessage, body["message"])

	s = newTestServer(ServerConf{ExposeErrors: true})
	resp, body = doRequest(t, s, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body["message"], "connection refused")
}

func TestErrorHandler_FiberError(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: errorHandler(false)})
	app.Get(
		"/teapot", func(*fiber.Ctx) error {
			return fiber.NewError(fiber.StatusTeapot, "short and stout")
		},
	)
	app.Get(
		"/panic", func(*fiber.Ctx) error {
			return errors.New("secret detail")
		},
	)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/teapot", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)
	var body errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "I'm a teapot", body.Error)
	assert.Equal(t, "short and stout", body.Message)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/panic", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotContains(t, body.Message, "secret")
}

func TestCORS(t *testing.T) {
	s := newTestServer(ServerConf{})
	req := httptest.NewRequest(http.MethodOptions, "/api/data-types", nil)
	req.Header.Set(fiber.HeaderOrigin, "http://localhost:5173")
	req.Header.Set(fiber.HeaderAccessControlRequestMethod, http.MethodGet)
	resp, _ := doRequest(t, s, req)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))

	req = httptest.NewRequest(http.MethodOptions, "/api/data-types", nil)
	req.Header.Set(fiber.HeaderOrigin, "http://evil.example")
	req.Header.Set(fiber.HeaderAccessControlRequestMethod, http.MethodGet)
	resp, _ = doRequest(t, s, req)
	assert.Empty(t, resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(ServerConf{})
	doRequest(t, s, httptest.NewRequest(http.MethodGet, "/health", nil))

	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "educonsent_http_requests_total")
	assert.Contains(t, string(raw), "educonsent_build_info")
}
