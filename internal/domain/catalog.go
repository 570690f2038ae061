package domain

type MenuOption struct {
	ID    int64
	Name  string
	Price int64
}

type OptionCategory struct {
	ID       int64
	Name     string
	Required bool
	Options  []MenuOption
}

// MenuItemSnapshot is the catalog's view of a menu item at order time. It is
// only held for the duration of one reconciliation and never stored.
type MenuItemSnapshot struct {
	ID               int64
	Name             string
	BasePrice        int64
	Description      string
	ImageURL         string
	SoldOut          bool
	OptionCategories []OptionCategory
}
