package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go-order-graphql/src/graphql"
	"go-order-graphql/src/infrastructure/log"
	"go-order-graphql/src/infrastructure/metrics"
	"go-order-graphql/src/services/events"
	"go-order-graphql/src/services/order/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testLogger = log.NewLoggerWithOutput(io.Discard, "error")

type stubOrderService struct {
	domain.OrderService
	order  *domain.Order
	err    error
	caller *domain.AuthorizedUser
}

func (s *stubOrderService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	if user, ok := domain.AuthorizedUserFrom(ctx); ok {
		s.caller = &user
	}
	return s.order, s.err
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

type mockReplayer struct {
	mock.Mock
}

func (m *mockReplayer) ReplayFailedEvents(ctx context.Context) (events.ReplayResult, error) {
	args := m.Called()
	return args.Get(0).(events.ReplayResult), args.Error(1)
}

func newGraphQLApp(t *testing.T, svc domain.OrderService) *fiber.App {
	t.Helper()
	handler, err := graphql.NewHandler(graphql.NewResolver(svc, testLogger, nil))
	require.NoError(t, err)
	return NewApp(testLogger, nil, NewGraphQLController(handler))
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func postJSON(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestGraphQLController_Execute(t *testing.T) {
	id := uuid.MustParse("123e4567-e89b-12d3-a456-426614174000")
	now := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	svc := &stubOrderService{order: &domain.Order{
		ID:        id,
		Status:    domain.StatusPaid,
		Items:     []domain.Item{{ProductID: uuid.New(), Quantity: 1, Price: decimal.NewFromInt(3)}},
		CreatedAt: now,
		UpdatedAt: now,
	}}
	app := newGraphQLApp(t, svc)

	for _, path := range []string{"/", "/graphql"} {
		resp, err := app.Test(postJSON(path, `{"query":"query($id: ID!) { order(id: $id) { id status total } }","variables":{"id":"`+id.String()+`"}}`))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, map[string]interface{}{
			"order": map[string]interface{}{"id": id.String(), "status": "PAID", "total": 3.0},
		}, body["data"])
	}
}

func TestGraphQLController_ErrorsInBody(t *testing.T) {
	app := newGraphQLApp(t, &stubOrderService{err: &domain.StoreUnavailableError{Op: "find", Err: errors.New("timeout")}})

	resp, err := app.Test(postJSON("/graphql", `{"query":"{ order(id: \"123e4567-e89b-12d3-a456-426614174000\") { id } }"}`))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	errs := body["errors"].([]interface{})
	require.Len(t, errs, 1)
	first := errs[0].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{"code": "STORE_UNAVAILABLE", "retryable": true}, first["extensions"])
}

func TestGraphQLController_RejectsUnreadableBody(t *testing.T) {
	app := newGraphQLApp(t, &stubOrderService{})

	resp, err := app.Test(postJSON("/graphql", `not json`))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(postJSON("/graphql", `{"variables":{}}`))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

const orderQuery = `{"query":"{ order(id: \"123e4567-e89b-12d3-a456-426614174000\") { id } }"}`

func TestGraphQLController_AuthorizedUser(t *testing.T) {
	userID := uuid.MustParse("cccccccc-0000-4000-8000-000000000003")
	svc := &stubOrderService{err: &domain.ForbiddenError{UserID: userID, Action: "access order 123e4567-e89b-12d3-a456-426614174000"}}
	app := newGraphQLApp(t, svc)

	req := postJSON("/graphql", orderQuery)
	req.Header.Set(AuthorizedUserHeader, `{"id":"`+userID.String()+`","roles":["customer"]}`)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.NotNil(t, svc.caller)
	assert.Equal(t, domain.AuthorizedUser{ID: userID, Roles: []string{"customer"}}, *svc.caller)
	body := decodeBody(t, resp)
	first := body["errors"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{"code": "FORBIDDEN"}, first["extensions"])
}

func TestGraphQLController_NoAuthorizedUser(t *testing.T) {
	svc := &stubOrderService{err: &domain.NotFoundError{}}

	resp, err := newGraphQLApp(t, svc).Test(postJSON("/graphql", orderQuery))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Nil(t, svc.caller)
}

func TestGraphQLController_RejectsMalformedAuthorizedUser(t *testing.T) {
	for _, header := range []string{`not json`, `{"id":"42"}`, `{"roles":["admin"]}`} {
		svc := &stubOrderService{}
		req := postJSON("/graphql", orderQuery)
		req.Header.Set(AuthorizedUserHeader, header)

		resp, err := newGraphQLApp(t, svc).Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, header)

		body := decodeBody(t, resp)
		first := body["errors"].([]interface{})[0].(map[string]interface{})
		assert.Equal(t, map[string]interface{}{"code": "VALIDATION_ERROR"}, first["extensions"])
		assert.Nil(t, svc.caller)
	}
}

func TestGraphQLController_Playground(t *testing.T) {
	app := newGraphQLApp(t, &stubOrderService{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	html, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(html), "GraphiQL")
}

func TestHealthController(t *testing.T) {
	tests := []struct {
		name   string
		pinger pingerFunc
		status int
		body   string
	}{
		{
			name:   "healthy",
			pinger: func(context.Context) error { return nil },
			status: fiber.StatusOK,
			body:   "healthy",
		},
		{
			name:   "ping fails",
			pinger: func(context.Context) error { return errors.New("connection refused") },
			status: fiber.StatusServiceUnavailable,
			body:   "unhealthy",
		},
		{
			name: "ping exceeds timeout",
			pinger: func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			},
			status: fiber.StatusServiceUnavailable,
			body:   "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			health := NewHealthController(tt.pinger, testLogger)
			health.timeout = 50 * time.Millisecond
			app := NewApp(testLogger, nil, health)

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.body, decodeBody(t, resp)["status"])
		})
	}
}

func TestHealthController_Live(t *testing.T) {
	app := NewApp(testLogger, nil, NewHealthController(pingerFunc(func(context.Context) error {
		return errors.New("down")
	}), testLogger))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestOrderController_ReplayFailedEvents(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		replayer := new(mockReplayer)
		replayer.On("ReplayFailedEvents").Return(events.ReplayResult{Total: 2, Succeeded: 2}, nil)
		app := NewApp(testLogger, nil, NewOrderController(replayer))

		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/orders/replay-failed-events", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.Equal(t, "Replay complete", body["status"])
		assert.Equal(t, map[string]interface{}{"total": 2.0, "succeeded": 2.0, "failed": 0.0}, body["result"])
	})

	t.Run("failure", func(t *testing.T) {
		replayer := new(mockReplayer)
		replayer.On("ReplayFailedEvents").Return(events.ReplayResult{Total: 1, Failed: 1}, errors.New("replay completed with 1 failures"))
		app := NewApp(testLogger, nil, NewOrderController(replayer))

		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/orders/replay-failed-events", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
		assert.Contains(t, decodeBody(t, resp)["error"], "1 failures")
	})
}

func TestDaprController_Subscribe(t *testing.T) {
	app := NewApp(testLogger, nil, NewDaprController())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/dapr/subscribe", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(body))
}

func TestRequestLogger_CorrelationID(t *testing.T) {
	app := NewApp(testLogger, nil, NewDaprController())

	req := httptest.NewRequest(http.MethodGet, "/dapr/subscribe", nil)
	req.Header.Set(CorrelationIDHeader, "abc-123")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "abc-123", resp.Header.Get(CorrelationIDHeader))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/dapr/subscribe", nil))
	require.NoError(t, err)
	_, err = uuid.Parse(resp.Header.Get(CorrelationIDHeader))
	assert.NoError(t, err)
}

func TestRequestLogger_UnknownRoute(t *testing.T) {
	app := NewApp(testLogger, nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestNewApp_Metrics(t *testing.T) {
	m := metrics.New()
	m.ObserveOperation("order", false, time.Millisecond)
	app := NewApp(testLogger, m.Handler())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "order_graphql_operations_total")
}
