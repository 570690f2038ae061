package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/kiosk-orders/internal/domain"
)

const americanoBody = `{
	"success": true,
	"code": 200,
	"message": "ok",
	"data": {
		"menuId": 1,
		"menuName": "Americano",
		"basePrice": 4000,
		"description": "Strong",
		"imageUrl": "americano.jpg",
		"soldOut": false,
		"optionCategories": [
			{"categoryId": 1, "categoryName": "Size", "required": true,
			 "options": [{"optionId": 1, "optionName": "Regular", "price": 0}, {"optionId": 2, "optionName": "Large", "price": 500}]}
		]
	}
}`

func TestClient_FetchMenuItem(t *testing.T) {
	t.Run("decodes the catalog envelope", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/menu/7/1" {
				t.Errorf("expected /api/menu/7/1, got %s", r.URL.Path)
			}
			if r.Method != http.MethodGet {
				t.Errorf("expected GET, got %s", r.Method)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(americanoBody))
		}))
		defer server.Close()

		client := NewClient(server.URL, server.Client(), time.Second)
		snapshot, err := client.FetchMenuItem(context.Background(), 7, 1)
		require.NoError(t, err)

		assert.Equal(t, int64(1), snapshot.ID)
		assert.Equal(t, "Americano", snapshot.Name)
		assert.Equal(t, int64(4000), snapshot.BasePrice)
		require.Len(t, snapshot.OptionCategories, 1)
		category := snapshot.OptionCategories[0]
		assert.Equal(t, "Size", category.Name)
		assert.True(t, category.Required)
		assert.Equal(t, []domain.MenuOption{
			{ID: 1, Name: "Regular", Price: 0},
			{ID: 2, Name: "Large", Price: 500},
		}, category.Options)
	})

	failures := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "not found status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"success":false,"code":404,"message":"menu not found"}`))
			},
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "unsuccessful envelope",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"success":false,"code":400,"message":"nope"}`))
			},
		},
		{
			name: "missing data",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"success":true,"code":200}`))
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{not json`))
			},
		},
	}

	for _, tt := range failures {
		t.Run(tt.name+" is menu not found", func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := NewClient(server.URL, server.Client(), time.Second)
			_, err := client.FetchMenuItem(context.Background(), 1, 1)
			assert.ErrorIs(t, err, domain.ErrMenuNotFound)
		})
	}

	t.Run("timeout is menu not found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer server.Close()

		client := NewClient(server.URL, server.Client(), 50*time.Millisecond)
		_, err := client.FetchMenuItem(context.Background(), 1, 1)
		assert.ErrorIs(t, err, domain.ErrMenuNotFound)
	})

	t.Run("unreachable service is menu not found", func(t *testing.T) {
		client := NewClient("http://localhost:99999", &http.Client{}, time.Second)
		_, err := client.FetchMenuItem(context.Background(), 1, 1)
		assert.ErrorIs(t, err, domain.ErrMenuNotFound)
	})

	t.Run("non-positive ids are rejected without a call", func(t *testing.T) {
		client := NewClient("http://unused", http.DefaultClient, time.Second)
		_, err := client.FetchMenuItem(context.Background(), 0, 1)
		assert.ErrorIs(t, err, domain.ErrMenuNotFound)
	})
}
