package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/joao-fontenele/kiosk-orders/internal/domain"
)

// Client looks up menu items in the catalog (menu) service. Every failure is
// reported as domain.ErrMenuNotFound; the wrapped cause is for logs only.
type Client struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
}

func NewClient(baseURL string, client *http.Client, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		client:  client,
		timeout: timeout,
	}
}

type envelope struct {
	Success bool          `json:"success"`
	Code    int           `json:"code"`
	Message string        `json:"message"`
	Data    *menuResponse `json:"data"`
}

type menuResponse struct {
	MenuID           int64              `json:"menuId"`
	MenuName         string             `json:"menuName"`
	BasePrice        int64              `json:"basePrice"`
	Description      string             `json:"description"`
	ImageURL         string             `json:"imageUrl"`
	SoldOut          bool               `json:"soldOut"`
	OptionCategories []categoryResponse `json:"optionCategories"`
}

type categoryResponse struct {
	CategoryID   int64            `json:"categoryId"`
	CategoryName string           `json:"categoryName"`
	Required     bool             `json:"required"`
	Options      []optionResponse `json:"options"`
}

type optionResponse struct {
	OptionID   int64  `json:"optionId"`
	OptionName string `json:"optionName"`
	Price      int64  `json:"price"`
}

func (c *Client) FetchMenuItem(ctx context.Context, storeID, menuID int64) (domain.MenuItemSnapshot, error) {
	if storeID <= 0 || menuID <= 0 {
		return domain.MenuItemSnapshot{}, fmt.Errorf("store %d menu %d: non-positive id: %w", storeID, menuID, domain.ErrMenuNotFound)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	url := fmt.Sprintf("%s/api/menu/%d/%d", c.baseURL, storeID, menuID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.MenuItemSnapshot{}, fmt.Errorf("create catalog request: %v: %w", err, domain.ErrMenuNotFound)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.MenuItemSnapshot{}, fmt.Errorf("fetch menu %d: %v: %w", menuID, err, domain.ErrMenuNotFound)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return domain.MenuItemSnapshot{}, fmt.Errorf("catalog returned status %d for menu %d: %w", resp.StatusCode, menuID, domain.ErrMenuNotFound)
	}

	var body envelope
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.MenuItemSnapshot{}, fmt.Errorf("decode menu %d: %v: %w", menuID, err, domain.ErrMenuNotFound)
	}

	if !body.Success || body.Data == nil {
		return domain.MenuItemSnapshot{}, fmt.Errorf("catalog rejected menu %d: %s: %w", menuID, body.Message, domain.ErrMenuNotFound)
	}

	return body.Data.snapshot(), nil
}

func (m *menuResponse) snapshot() domain.MenuItemSnapshot {
	categories := make([]domain.OptionCategory, 0, len(m.OptionCategories))
	for _, c := range m.OptionCategories {
		options := make([]domain.MenuOption, 0, len(c.Options))
		for _, o := range c.Options {
			options = append(options, domain.MenuOption{ID: o.OptionID, Name: o.OptionName, Price: o.Price})
		}
		categories = append(categories, domain.OptionCategory{
			ID:       c.CategoryID,
			Name:     c.CategoryName,
			Required: c.Required,
			Options:  options,
		})
	}

	return domain.MenuItemSnapshot{
		ID:               m.MenuID,
		Name:             m.MenuName,
		BasePrice:        m.BasePrice,
		Description:      m.Description,
		ImageURL:         m.ImageURL,
		SoldOut:          m.SoldOut,
		OptionCategories: categories,
	}
}
