package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/joao-fontenele/kiosk-orders/internal/access"
	"github.com/joao-fontenele/kiosk-orders/internal/domain"
	"github.com/joao-fontenele/kiosk-orders/internal/telemetry"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts the order API on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	handle := func(pattern string, fn http.HandlerFunc) {
		mux.HandleFunc(pattern, telemetry.WithHTTPRoute(fn))
	}

	handle("POST /api/order", h.HandleCreate)
	handle("GET /api/order/{orderId}", h.HandleGet)
	handle("PATCH /api/order/{orderId}", h.HandleCancel)
	handle("GET /api/order/store/{storeId}", h.HandleListByStore)
	handle("GET /healthz", h.HandleHealth)
}

// apiResponse is the envelope shared by the kiosk platform services.
type apiResponse struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, fmtInvalid("invalid request body"))
		return
	}

	result, err := h.service.CreateOrder(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, "order created", result)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("orderId")

	detail, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, "order retrieved", detail)
}

func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("orderId")

	result, err := h.service.CancelOrder(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, "order cancelled", result)
}

func (h *Handler) HandleListByStore(w http.ResponseWriter, r *http.Request) {
	storeID, err := strconv.ParseInt(r.PathValue("storeId"), 10, 64)
	if err != nil {
		h.writeError(w, r, fmtInvalid("storeId must be an integer"))
		return
	}

	details, err := h.service.ListOrdersByStore(r.Context(), storeID, r.Header.Get(access.ManagedStoreIDsHeader))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "orders listed", "store_id", storeID, "count", len(details))
	h.writeJSON(w, http.StatusOK, "orders retrieved", details)
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.service.Ping(ctx); err != nil {
		h.logger.ErrorContext(ctx, "health check failed", "error", err)
		h.writeJSON(w, http.StatusServiceUnavailable, "order store unavailable", nil)
		return
	}

	h.writeJSON(w, http.StatusOK, "ok", nil)
}

func fmtInvalid(detail string) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidRequest, detail)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, message string, data any) {
	h.write(w, status, apiResponse{
		Success: status < http.StatusBadRequest,
		Code:    status,
		Message: message,
		Data:    data,
	})
}

func (h *Handler) write(w http.ResponseWriter, status int, body apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeError maps domain errors to their status and kind. Their wrapped
// detail is only logged, except for request validation where it tells the
// kiosk which field is wrong.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var domainErr *domain.Error
	if !errors.As(err, &domainErr) {
		h.logger.ErrorContext(r.Context(), "request failed", "error", err, "method", r.Method, "path", r.URL.Path)
		h.write(w, http.StatusInternalServerError, apiResponse{
			Code:    http.StatusInternalServerError,
			Message: "internal server error",
			Error:   "INTERNAL_ERROR",
		})
		return
	}

	h.logger.WarnContext(r.Context(), "request rejected", "error", err, "kind", domainErr.Kind, "path", r.URL.Path)

	message := domainErr.Message
	if errors.Is(err, domain.ErrInvalidRequest) {
		message = err.Error()
	}

	h.write(w, domainErr.Status, apiResponse{
		Code:    domainErr.Status,
		Message: message,
		Error:   domainErr.Kind,
	})
}
