package core

import (
	"fmt"

	"github.com/avior/policyvault/internal/models"
	"github.com/avior/policyvault/internal/store"
)

// nextNumber computes the next free number in a category's range: one past
// the highest assigned number, or the range start when the category is empty.
// Must run inside the same transaction that inserts the document.
func nextNumber(tx *store.Tx, cat *models.Category) (int, error) {
	max, err := tx.MaxNumber(cat.ID, cat.RangeStart, cat.RangeEnd)
	if err != nil {
		return 0, err
	}
	if max == 0 {
		return cat.RangeStart, nil
	}

	next := max + 1
	if next > cat.RangeEnd {
		return 0, fmt.Errorf("category %s: %w", cat.ID, ErrRangeExhausted)
	}
	return next, nil
}

// NextNumber previews the number the next document in a category would
// receive. The authoritative reservation happens inside CreateDocument's
// transaction; this read can go stale under concurrent creates.
func NextNumber(st *store.Store, categoryID string) (int, error) {
	var n int
	err := st.WithTx(func(tx *store.Tx) error {
		cat, err := tx.GetCategory(categoryID)
		if err != nil {
			return err
		}
		n, err = nextNumber(tx, cat)
		return err
	})
	return n, err
}
