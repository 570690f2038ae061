package orders

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/kiosk-orders/internal/access"
)

type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T) (*httptest.Server, *fixture) {
	t.Helper()

	f := newFixture(t)
	mux := http.NewServeMux()
	NewHandler(f.service, f.service.logger).Register(mux)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, f
}

func do(t *testing.T, method, url, body string, header http.Header) (int, envelope) {
	t.Helper()

	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

const createBody = `{
	"storeId": 7,
	"storeName": "Gangnam",
	"orderType": "TAKEOUT",
	"paymentMethod": "CARD",
	"items": [{
		"menuId": 1,
		"menuName": "Americano",
		"basePrice": 4000,
		"selectedOptions": {"1": [1]},
		"optionPrice": 0,
		"quantity": 2,
		"totalPrice": 8000
	}],
	"totalAmount": 8000,
	"totalItems": 2
}`

func TestHandler_OrderLifecycle(t *testing.T) {
	server, _ := newTestServer(t)

	status, env := do(t, http.MethodPost, server.URL+"/api/order", createBody, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.True(t, env.Success)

	var created CreateOrderResult
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.NotEmpty(t, created.OrderID)

	status, env = do(t, http.MethodGet, server.URL+"/api/order/"+created.OrderID, "", nil)
	require.Equal(t, http.StatusOK, status)

	var detail struct {
		OrderID     string `json:"orderId"`
		OrderNumber string `json:"orderNumber"`
		OrderType   string `json:"orderType"`
		Status      string `json:"status"`
		TotalAmount int64  `json:"totalAmount"`
		Items       []struct {
			MenuName        string              `json:"menuName"`
			SelectedOptions map[string][]string `json:"selectedOptions"`
			TotalPrice      int64               `json:"totalPrice"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.Equal(t, created.OrderID, detail.OrderID)
	assert.Equal(t, created.OrderNumber, detail.OrderNumber)
	assert.Equal(t, "TAKEOUT", detail.OrderType)
	assert.Equal(t, "READY", detail.Status)
	require.Len(t, detail.Items, 1)
	assert.Equal(t, map[string][]string{"Size": {"Regular"}}, detail.Items[0].SelectedOptions)

	status, env = do(t, http.MethodPatch, server.URL+"/api/order/"+created.OrderID, "", nil)
	require.Equal(t, http.StatusOK, status)

	var cancelled CancelOrderResult
	require.NoError(t, json.Unmarshal(env.Data, &cancelled))
	assert.Equal(t, int64(8000), cancelled.RefundAmount)

	header := http.Header{}
	header.Set(access.ManagedStoreIDsHeader, "3, 7")
	status, env = do(t, http.MethodGet, server.URL+"/api/order/store/7", "", header)
	require.Equal(t, http.StatusOK, status)

	var listed []struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "CANCELLED", listed[0].Status)
}

func TestHandler_Errors(t *testing.T) {
	server, _ := newTestServer(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		storeIDs   string
		wantStatus int
		wantKind   string
	}{
		{
			name:       "malformed body",
			method:     http.MethodPost,
			path:       "/api/order",
			body:       `{`,
			wantStatus: http.StatusBadRequest,
			wantKind:   "INVALID_REQUEST",
		},
		{
			name:       "price mismatch",
			method:     http.MethodPost,
			path:       "/api/order",
			body:       strings.Replace(createBody, `"totalPrice": 8000`, `"totalPrice": 9999`, 1),
			wantStatus: http.StatusBadRequest,
			wantKind:   "ORDER_ITEM_PRICE_MISMATCH",
		},
		{
			name:       "unknown menu",
			method:     http.MethodPost,
			path:       "/api/order",
			body:       strings.Replace(createBody, `"menuId": 1`, `"menuId": 404`, 1),
			wantStatus: http.StatusNotFound,
			wantKind:   "MENU_NOT_FOUND",
		},
		{
			name:       "missing order",
			method:     http.MethodGet,
			path:       "/api/order/does-not-exist",
			wantStatus: http.StatusNotFound,
			wantKind:   "ORDER_NOT_FOUND",
		},
		{
			name:       "cancel missing order",
			method:     http.MethodPatch,
			path:       "/api/order/does-not-exist",
			wantStatus: http.StatusNotFound,
			wantKind:   "ORDER_NOT_FOUND",
		},
		{
			name:       "store not managed",
			method:     http.MethodGet,
			path:       "/api/order/store/4",
			storeIDs:   "1,2,3",
			wantStatus: http.StatusForbidden,
			wantKind:   "STORE_ACCESS_DENIED",
		},
		{
			name:       "store header missing",
			method:     http.MethodGet,
			path:       "/api/order/store/4",
			wantStatus: http.StatusForbidden,
			wantKind:   "STORE_ACCESS_DENIED",
		},
		{
			name:       "non-numeric store id",
			method:     http.MethodGet,
			path:       "/api/order/store/abc",
			storeIDs:   "1",
			wantStatus: http.StatusBadRequest,
			wantKind:   "INVALID_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.storeIDs != "" {
				header.Set(access.ManagedStoreIDsHeader, tt.storeIDs)
			}

			status, env := do(t, tt.method, server.URL+tt.path, tt.body, header)
			assert.Equal(t, tt.wantStatus, status)
			assert.False(t, env.Success)
			assert.Equal(t, tt.wantStatus, env.Code)
			assert.Equal(t, tt.wantKind, env.Error)
			assert.NotEmpty(t, env.Message)
		})
	}
}

func TestHandler_Health(t *testing.T) {
	server, _ := newTestServer(t)

	status, env := do(t, http.MethodGet, server.URL+"/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)
}

type requestKey struct{}

// contextRecorder keeps each record's message with the request tag found on
// the context it was logged with.
type contextRecorder struct {
	mu   sync.Mutex
	tags map[string]string
}

func (c *contextRecorder) Enabled(context.Context, slog.Level) bool { return true }

func (c *contextRecorder) Handle(ctx context.Context, rec slog.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	tag, _ := ctx.Value(requestKey{}).(string)
	c.tags[rec.Message] = tag
	return nil
}

func (c *contextRecorder) WithAttrs([]slog.Attr) slog.Handler { return c }
func (c *contextRecorder) WithGroup(string) slog.Handler      { return c }

func (c *contextRecorder) tag(message string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tag, ok := c.tags[message]
	return tag, ok
}

func TestHandler_LogsWithRequestContext(t *testing.T) {
	f := newFixture(t)
	recorder := &contextRecorder{tags: map[string]string{}}

	mux := http.NewServeMux()
	NewHandler(f.service, slog.New(recorder)).Register(mux)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mux.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestKey{}, "req-1")))
	}))
	t.Cleanup(server.Close)

	header := http.Header{}
	header.Set(access.ManagedStoreIDsHeader, "7")
	status, _ := do(t, http.MethodGet, server.URL+"/api/order/store/7", "", header)
	require.Equal(t, http.StatusOK, status)

	tag, ok := recorder.tag("orders listed")
	require.True(t, ok)
	assert.Equal(t, "req-1", tag)
}
