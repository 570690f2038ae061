package access

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joao-fontenele/kiosk-orders/internal/domain"
)

// ManagedStoreIDsHeader carries the caller's accessible store ids, set by the
// gateway after authentication.
const ManagedStoreIDsHeader = "X-MANAGED-STORE-IDS"

type StoreSet map[int64]struct{}

func (s StoreSet) Contains(storeID int64) bool {
	_, ok := s[storeID]
	return ok
}

// ParseStoreIDs parses a comma separated list such as "1, 2,3".
func ParseStoreIDs(csv string) (StoreSet, error) {
	if strings.TrimSpace(csv) == "" {
		return nil, fmt.Errorf("empty store id list")
	}

	set := make(StoreSet)
	for _, part := range strings.Split(csv, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse store id %q: %w", part, err)
		}
		set[id] = struct{}{}
	}

	return set, nil
}

func ValidateAccess(storeID int64, csv string) error {
	set, err := ParseStoreIDs(csv)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreAccessDenied, err)
	}

	if !set.Contains(storeID) {
		return fmt.Errorf("%w: store %d", domain.ErrStoreAccessDenied, storeID)
	}

	return nil
}
