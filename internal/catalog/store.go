package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

type Item struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
}

// NewItem is an item before the store has assigned it an id.
type NewItem struct {
	Name     string
	Category string
	Price    float64
}

type Store interface {
	ReadAll(ctx context.Context) ([]Item, error)
	Append(ctx context.Context, it NewItem) (Item, error)
	FindByID(ctx context.Context, id int64) (Item, bool, error)
	Ping(ctx context.Context) error
}

var (
	ErrNotFound   = errors.New("item not found")
	ErrValidation = errors.New("validation failed")
	ErrStorage    = errors.New("storage error")
)

// StorageError reports a failed read, write or parse of the backing data.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() []error { return []error{ErrStorage, e.Err} }

// ValidationError maps offending field names to a short reason.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, f)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, f := range names {
		parts = append(parts, f+" "+e.Fields[f])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func storageErr(op, path string, err error) error {
	return &StorageError{Op: op, Path: path, Err: err}
}

// Validate checks the required fields of a new item.
func (n NewItem) Validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(n.Name) == "" {
		fields["name"] = "required"
	}
	if strings.TrimSpace(n.Category) == "" {
		fields["category"] = "required"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func findByID(items []Item, id int64) (Item, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}
