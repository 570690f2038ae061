package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/joao-fontenele/kiosk-orders/internal/access"
	"github.com/joao-fontenele/kiosk-orders/internal/domain"
	"github.com/joao-fontenele/kiosk-orders/internal/pricing"
	"github.com/joao-fontenele/kiosk-orders/internal/telemetry"
)

var tracer = otel.Tracer("orders/service")

const (
	DefaultCatalogConcurrency = 4

	maxOrderNumberAttempts = 3
	maxCancelAttempts      = 2
)

// MenuFetcher returns the current catalog snapshot of one menu item.
type MenuFetcher interface {
	FetchMenuItem(ctx context.Context, storeID, menuID int64) (domain.MenuItemSnapshot, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

type CreateOrderItem struct {
	MenuID          int64             `json:"menuId"`
	MenuName        string            `json:"menuName"`
	BasePrice       int64             `json:"basePrice"`
	SelectedOptions map[int64][]int64 `json:"selectedOptions"`
	OptionPrice     int64             `json:"optionPrice"`
	Quantity        int               `json:"quantity"`
	TotalPrice      int64             `json:"totalPrice"`
}

// CreateOrderRequest is the kiosk's order submission. MenuName, BasePrice and
// OptionPrice are informational; only the catalog's values are used.
type CreateOrderRequest struct {
	StoreID       int64                `json:"storeId"`
	StoreName     string               `json:"storeName"`
	OrderType     domain.OrderType     `json:"orderType"`
	PaymentMethod domain.PaymentMethod `json:"paymentMethod"`
	Items         []CreateOrderItem    `json:"items"`
	TotalAmount   int64                `json:"totalAmount"`
	TotalItems    int                  `json:"totalItems"`
}

func (r CreateOrderRequest) validate() error {
	switch {
	case r.StoreID <= 0:
		return fmt.Errorf("%w: storeId must be positive", domain.ErrInvalidRequest)
	case !r.OrderType.Valid():
		return fmt.Errorf("%w: unknown orderType %q", domain.ErrInvalidRequest, r.OrderType)
	case !r.PaymentMethod.Valid():
		return fmt.Errorf("%w: unknown paymentMethod %q", domain.ErrInvalidRequest, r.PaymentMethod)
	case len(r.Items) == 0:
		return fmt.Errorf("%w: order has no items", domain.ErrInvalidRequest)
	}

	for i, item := range r.Items {
		if item.MenuID <= 0 {
			return fmt.Errorf("%w: items[%d].menuId must be positive", domain.ErrInvalidRequest, i)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: items[%d].quantity must be positive", domain.ErrInvalidRequest, i)
		}
	}

	return nil
}

type CreateOrderResult struct {
	OrderID     string `json:"orderId"`
	OrderNumber string `json:"orderNumber"`
}

type CancelOrderResult struct {
	OrderID      string `json:"orderId"`
	RefundAmount int64  `json:"refundAmount"`
}

type Service struct {
	repo        Repository
	catalog     MenuFetcher
	publisher   EventPublisher
	metrics     *telemetry.OrderMetrics
	logger      *slog.Logger
	concurrency int
	now         func() time.Time
	orderNumber func(time.Time) string
}

type ServiceOption func(*Service)

// WithPublisher enables order events. Without it nothing is published.
func WithPublisher(p EventPublisher) ServiceOption {
	return func(s *Service) {
		s.publisher = p
	}
}

func WithMetrics(m *telemetry.OrderMetrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithConcurrency bounds the catalog lookups in flight for one order.
func WithConcurrency(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

func WithOrderNumberGenerator(gen func(time.Time) string) ServiceOption {
	return func(s *Service) {
		s.orderNumber = gen
	}
}

func NewService(repo Repository, catalog MenuFetcher, logger *slog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		repo:        repo,
		catalog:     catalog,
		logger:      logger,
		concurrency: DefaultCatalogConcurrency,
		now:         time.Now,
		orderNumber: NewOrderNumber,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// CreateOrder validates the submission against the catalog and persists it
// as a READY order. Nothing is written unless every line and the order total
// reconcile exactly.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (CreateOrderResult, error) {
	ctx, span := tracer.Start(ctx, "CreateOrder", trace.WithAttributes(
		attribute.Int64("store.id", req.StoreID),
		attribute.Int("order.lines", len(req.Items)),
	))
	defer span.End()

	result, err := s.createOrder(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		var domainErr *domain.Error
		if errors.As(err, &domainErr) {
			s.metrics.OrderRejected(ctx, domainErr.Kind)
		}
		return CreateOrderResult{}, err
	}

	span.SetAttributes(attribute.String("order.id", result.OrderID))
	return result, nil
}

func (s *Service) createOrder(ctx context.Context, req CreateOrderRequest) (CreateOrderResult, error) {
	if err := req.validate(); err != nil {
		return CreateOrderResult{}, err
	}

	snapshots, err := s.fetchSnapshots(ctx, req.StoreID, req.Items)
	if err != nil {
		return CreateOrderResult{}, err
	}

	lines := make([]domain.OrderLine, 0, len(req.Items))
	for i, item := range req.Items {
		snapshot := snapshots[item.MenuID]

		if missing := pricing.UnselectedRequired(snapshot, item.SelectedOptions); len(missing) > 0 {
			s.logger.DebugContext(ctx, "required option categories left unselected",
				"store_id", req.StoreID, "menu_id", item.MenuID, "categories", missing)
		}

		options, _, err := pricing.ResolveOptions(snapshot, item.SelectedOptions)
		if err != nil {
			return CreateOrderResult{}, fmt.Errorf("items[%d]: %w", i, err)
		}

		lineTotal, err := pricing.ReconcileLine(snapshot, item.Quantity, options, item.TotalPrice)
		if err != nil {
			return CreateOrderResult{}, fmt.Errorf("items[%d]: %w", i, err)
		}

		lines = append(lines, domain.OrderLine{
			MenuID:          item.MenuID,
			MenuName:        snapshot.Name,
			BasePrice:       snapshot.BasePrice,
			Quantity:        item.Quantity,
			SelectedOptions: options,
			LineTotal:       lineTotal,
		})
	}

	total, err := pricing.ReconcileOrder(lines, req.TotalAmount)
	if err != nil {
		return CreateOrderResult{}, err
	}

	// Mongo keeps milliseconds; truncating keeps both stores consistent.
	now := s.now().UTC().Truncate(time.Millisecond)
	order := &domain.Order{
		StoreID:       req.StoreID,
		StoreName:     req.StoreName,
		OrderType:     req.OrderType,
		PaymentMethod: req.PaymentMethod,
		Status:        domain.OrderStatusReady,
		Items:         lines,
		TotalAmount:   total,
		TotalItems:    req.TotalItems,
		CreatedAt:     now,
		UpdatedAt:     now,
		Version:       1,
	}

	if err := s.insert(ctx, order); err != nil {
		return CreateOrderResult{}, err
	}

	s.metrics.OrderCreated(ctx, order.StoreID)
	s.publish(ctx, domain.OrderEventCreated, *order)

	s.logger.InfoContext(ctx, "order created",
		"order_id", order.ID,
		"order_number", order.OrderNumber,
		"store_id", order.StoreID,
		"total_amount", order.TotalAmount,
	)

	return CreateOrderResult{OrderID: order.ID, OrderNumber: order.OrderNumber}, nil
}

// fetchSnapshots looks up each distinct menu id once, at most s.concurrency
// at a time. The first failure cancels the remaining lookups.
func (s *Service) fetchSnapshots(ctx context.Context, storeID int64, items []CreateOrderItem) (map[int64]domain.MenuItemSnapshot, error) {
	menuIDs := make([]int64, 0, len(items))
	seen := make(map[int64]struct{}, len(items))
	for _, item := range items {
		if _, ok := seen[item.MenuID]; ok {
			continue
		}
		seen[item.MenuID] = struct{}{}
		menuIDs = append(menuIDs, item.MenuID)
	}

	results := make([]domain.MenuItemSnapshot, len(menuIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, menuID := range menuIDs {
		g.Go(func() error {
			start := time.Now()
			snapshot, err := s.catalog.FetchMenuItem(gctx, storeID, menuID)
			s.metrics.CatalogLookup(gctx, time.Since(start), err == nil)
			if err != nil {
				s.logger.WarnContext(ctx, "catalog lookup failed",
					"error", err, "store_id", storeID, "menu_id", menuID)
				return err
			}
			results[i] = snapshot
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	snapshots := make(map[int64]domain.MenuItemSnapshot, len(menuIDs))
	for i, menuID := range menuIDs {
		snapshots[menuID] = results[i]
	}
	return snapshots, nil
}

func (s *Service) insert(ctx context.Context, order *domain.Order) error {
	for attempt := 1; ; attempt++ {
		order.OrderNumber = s.orderNumber(order.CreatedAt)

		err := s.repo.Create(ctx, order)
		if err == nil {
			return nil
		}

		if !errors.Is(err, ErrDuplicateOrderNumber) || attempt == maxOrderNumberAttempts {
			return fmt.Errorf("create order: %w", err)
		}

		s.logger.WarnContext(ctx, "order number collision, regenerating",
			"order_number", order.OrderNumber, "attempt", attempt)
	}
}

func (s *Service) GetOrder(ctx context.Context, id string) (domain.OrderDetail, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.OrderDetail{}, fmt.Errorf("get order %s: %w", id, err)
	}

	if order == nil {
		return domain.OrderDetail{}, fmt.Errorf("order %s: %w", id, domain.ErrOrderNotFound)
	}

	return order.Detail(), nil
}

// CancelOrder moves the order to CANCELLED and reports the full order total
// as the refund. Cancelling an already cancelled order writes nothing and
// reports the same refund. A concurrent modification is retried once against
// the reloaded order.
func (s *Service) CancelOrder(ctx context.Context, id string) (CancelOrderResult, error) {
	ctx, span := tracer.Start(ctx, "CancelOrder", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	result, err := s.cancelOrder(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return CancelOrderResult{}, err
	}

	return result, nil
}

func (s *Service) cancelOrder(ctx context.Context, id string) (CancelOrderResult, error) {
	for attempt := 1; ; attempt++ {
		order, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return CancelOrderResult{}, fmt.Errorf("get order %s: %w", id, err)
		}

		if order == nil {
			return CancelOrderResult{}, fmt.Errorf("order %s: %w", id, domain.ErrOrderNotFound)
		}

		result := CancelOrderResult{OrderID: order.ID, RefundAmount: order.TotalAmount}

		if order.Status == domain.OrderStatusCancelled {
			s.logger.InfoContext(ctx, "order already cancelled", "order_id", order.ID)
			return result, nil
		}

		cancelled := order.Cancel(s.now().UTC().Truncate(time.Millisecond))

		err = s.repo.Update(ctx, &cancelled)
		if err == nil {
			s.metrics.OrderCancelled(ctx, cancelled.StoreID)
			s.publish(ctx, domain.OrderEventCancelled, cancelled)
			s.logger.InfoContext(ctx, "order cancelled",
				"order_id", cancelled.ID,
				"order_number", cancelled.OrderNumber,
				"refund_amount", result.RefundAmount,
			)
			return result, nil
		}

		if !errors.Is(err, ErrVersionConflict) || attempt == maxCancelAttempts {
			return CancelOrderResult{}, fmt.Errorf("cancel order %s: %w", id, err)
		}

		s.logger.WarnContext(ctx, "order modified concurrently, reloading", "order_id", id)
	}
}

// ListOrdersByStore returns the store's orders, newest first, provided the
// caller's managed store list includes storeID.
func (s *Service) ListOrdersByStore(ctx context.Context, storeID int64, managedStoreIDs string) ([]domain.OrderDetail, error) {
	if err := access.ValidateAccess(storeID, managedStoreIDs); err != nil {
		return nil, err
	}

	orders, err := s.repo.ListByStore(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("list orders of store %d: %w", storeID, err)
	}

	details := make([]domain.OrderDetail, 0, len(orders))
	for _, order := range orders {
		details = append(details, order.Detail())
	}

	return details, nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *Service) publish(ctx context.Context, eventType domain.OrderEventType, order domain.Order) {
	if s.publisher == nil {
		return
	}

	if err := s.publisher.Publish(ctx, order.ID, domain.NewOrderEvent(eventType, order)); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order event",
			"error", err, "order_id", order.ID, "event_type", eventType)
	}
}
