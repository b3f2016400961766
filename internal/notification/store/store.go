// Package store persists notifications and preferences. Implementations
// return sentinel errors; the service layer translates them.
package store

// Filter narrows List results. Zero values mean "no filter"; Page and Limit
// are normalized by the service before reaching the store.
type Filter struct {
	Page       int
	Limit      int
	UnreadOnly bool
	Priority   string
	Status     string
	Type       string
}

// Offset derives the row offset from page and limit.
func (f Filter) Offset() int {
	page := f.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * f.Limit
}
