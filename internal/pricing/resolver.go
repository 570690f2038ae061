package pricing

import (
	"fmt"
	"slices"

	"github.com/joao-fontenele/kiosk-orders/internal/domain"
)

// ResolveOptions turns the client's option ids, grouped by category id, into
// denormalized SelectedOptions taken from the snapshot. The grouping key is
// not trusted: each option id is searched across all of the item's
// categories, and the first category in snapshot order that holds it names
// the option.
func ResolveOptions(snapshot domain.MenuItemSnapshot, selected map[int64][]int64) ([]domain.SelectedOption, int64, error) {
	categoryIDs := make([]int64, 0, len(selected))
	for id := range selected {
		categoryIDs = append(categoryIDs, id)
	}
	slices.Sort(categoryIDs)

	options := make([]domain.SelectedOption, 0)
	var total int64
	for _, categoryID := range categoryIDs {
		for _, optionID := range selected[categoryID] {
			category, option, ok := findOption(snapshot.OptionCategories, optionID)
			if !ok {
				return nil, 0, fmt.Errorf("menu %d option %d: %w", snapshot.ID, optionID, domain.ErrInvalidOptionID)
			}
			options = append(options, domain.SelectedOption{
				CategoryName: category.Name,
				OptionName:   option.Name,
				Price:        option.Price,
			})
			if total, ok = addInt64(total, option.Price); !ok {
				return nil, 0, fmt.Errorf("menu %d: option prices overflow: %w", snapshot.ID, domain.ErrOrderItemPriceMismatch)
			}
		}
	}

	return options, total, nil
}

func findOption(categories []domain.OptionCategory, optionID int64) (domain.OptionCategory, domain.MenuOption, bool) {
	for _, category := range categories {
		for _, option := range category.Options {
			if option.ID == optionID {
				return category, option, true
			}
		}
	}
	return domain.OptionCategory{}, domain.MenuOption{}, false
}

// UnselectedRequired lists the names of required categories the client chose
// nothing from. Callers only report it; it is not a validation failure.
func UnselectedRequired(snapshot domain.MenuItemSnapshot, selected map[int64][]int64) []string {
	var missing []string
	for _, category := range snapshot.OptionCategories {
		if category.Required && len(selected[category.ID]) == 0 {
			missing = append(missing, category.Name)
		}
	}
	return missing
}
