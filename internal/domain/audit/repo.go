package audit

import (
	"context"
)

// SearchFilter narrows an audit log query.
type SearchFilter struct {
	UserID       string
	Action       string
	ResourceType string
	Severity     string
}

type Repository interface {
	Insert(ctx context.Context, e *Entry) error
	Search(ctx context.Context, filter SearchFilter, limit, offset int) ([]*Entry, int, error)
}
