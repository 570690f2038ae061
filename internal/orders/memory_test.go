package orders

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/joao-fontenele/kiosk-orders/internal/domain"
)

// memoryRepository is a Repository kept in a map, with the same duplicate
// and version semantics as the real stores.
type memoryRepository struct {
	mu     sync.Mutex
	orders map[string]domain.Order

	createErrs []error
	updateErrs []error
	creates    int
	updates    int
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{orders: make(map[string]domain.Order)}
}

func (m *memoryRepository) Create(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.creates++
	if len(m.createErrs) > 0 {
		err := m.createErrs[0]
		m.createErrs = m.createErrs[1:]
		if err != nil {
			return err
		}
	}

	for _, existing := range m.orders {
		if existing.OrderNumber == order.OrderNumber {
			return ErrDuplicateOrderNumber
		}
	}

	order.ID = uuid.New().String()
	m.orders[order.ID] = clone(*order)
	return nil
}

func (m *memoryRepository) GetByID(_ context.Context, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	out := clone(order)
	return &out, nil
}

func (m *memoryRepository) Update(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.updates++
	if len(m.updateErrs) > 0 {
		err := m.updateErrs[0]
		m.updateErrs = m.updateErrs[1:]
		if err != nil {
			return err
		}
	}

	stored, ok := m.orders[order.ID]
	if !ok || stored.Version != order.Version {
		return ErrVersionConflict
	}

	stored.Status = order.Status
	stored.UpdatedAt = order.UpdatedAt
	stored.Version++
	m.orders[order.ID] = stored
	order.Version++
	return nil
}

func (m *memoryRepository) ListByStore(_ context.Context, storeID int64) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []domain.Order{}
	for _, order := range m.orders {
		if order.StoreID == storeID {
			out = append(out, clone(order))
		}
	}
	slices.SortFunc(out, func(a, b domain.Order) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (m *memoryRepository) Ping(context.Context) error {
	return nil
}

func (m *memoryRepository) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

func clone(o domain.Order) domain.Order {
	o.Items = slices.Clone(o.Items)
	for i := range o.Items {
		o.Items[i].SelectedOptions = slices.Clone(o.Items[i].SelectedOptions)
	}
	return o
}

// fakeCatalog serves snapshots from a map keyed by menu id.
type fakeCatalog struct {
	mu    sync.Mutex
	menus map[int64]domain.MenuItemSnapshot
	calls []int64
}

func (f *fakeCatalog) FetchMenuItem(_ context.Context, _ int64, menuID int64) (domain.MenuItemSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, menuID)
	snapshot, ok := f.menus[menuID]
	if !ok {
		return domain.MenuItemSnapshot{}, domain.ErrMenuNotFound
	}
	return snapshot, nil
}

func (f *fakeCatalog) set(snapshot domain.MenuItemSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.menus[snapshot.ID] = snapshot
}

type publishedEvent struct {
	key   string
	event domain.OrderEvent
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{key: key, event: event.(domain.OrderEvent)})
	return nil
}
