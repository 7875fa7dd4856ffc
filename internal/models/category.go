package models

import "time"

// Category is a numbering namespace for documents. Each category reserves a
// contiguous numeric range; document numbers are assigned from it.
type Category struct {
	ID         string // short code, e.g. "RPAS"
	Name       string
	RangeStart int
	RangeEnd   int
	CreatedAt  time.Time
}

// InRange reports whether n falls inside the category's reserved range.
func (c *Category) InRange(n int) bool {
	return n >= c.RangeStart && n <= c.RangeEnd
}
