package history

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/piske-alex/mongoexpr/internal/expression"
)

// ErrEntryNotFound is returned when no entry has the requested ID
var ErrEntryNotFound = errors.New("history entry not found")

// ErrInvalidID is returned for IDs that are not UUIDs
var ErrInvalidID = errors.New("invalid history entry id")

const (
	// DefaultListLimit applies when ListOptions.Limit is zero
	DefaultListLimit = 100
	// MaxListLimit caps ListOptions.Limit
	MaxListLimit = 1000
)

// Entry is one analyzed expression
type Entry struct {
	ID         string          `json:"id" bson:"_id"`
	Expression string          `json:"expression" bson:"expression"`
	Recognized bool            `json:"recognized" bson:"recognized"`
	Collection string          `json:"collection,omitempty" bson:"collection,omitempty"`
	Method     string          `json:"method,omitempty" bson:"method,omitempty"`
	Kind       expression.Kind `json:"kind,omitempty" bson:"kind,omitempty"`
	View       expression.View `json:"view,omitempty" bson:"view,omitempty"`
	CreatedAt  time.Time       `json:"createdAt" bson:"createdAt"`
}

// NewEntry analyzes expr and wraps the outcome in an entry with a fresh ID
func NewEntry(expr string) Entry {
	entry := Entry{
		ID:         uuid.NewString(),
		Expression: expr,
		CreatedAt:  time.Now().UTC(),
	}
	if res, err := expression.Analyze(expr); err == nil {
		entry.Recognized = true
		entry.Collection = res.Collection
		entry.Method = res.Method
		entry.Kind = res.Kind
		entry.View = res.View
	}
	return entry
}

// ListOptions narrows a List call. Zero values mean no bound.
type ListOptions struct {
	From       time.Time
	To         time.Time
	Skip       int
	Limit      int
	Collection string
	Method     string
}

func (o ListOptions) limit() int {
	switch {
	case o.Limit <= 0:
		return DefaultListLimit
	case o.Limit > MaxListLimit:
		return MaxListLimit
	default:
		return o.Limit
	}
}

func (o ListOptions) matches(e Entry) bool {
	if !o.From.IsZero() && e.CreatedAt.Before(o.From) {
		return false
	}
	if !o.To.IsZero() && e.CreatedAt.After(o.To) {
		return false
	}
	if o.Collection != "" && e.Collection != o.Collection {
		return false
	}
	if o.Method != "" && e.Method != o.Method {
		return false
	}
	return true
}

// Store defines the interface for an expression history
type Store interface {
	// Add stores an entry, filling in ID and CreatedAt when empty
	Add(ctx context.Context, entry Entry) (Entry, error)

	// Get retrieves an entry by ID
	Get(ctx context.Context, id string) (Entry, error)

	// List returns entries newest first
	List(ctx context.Context, opts ListOptions) ([]Entry, error)

	// Delete removes an entry by ID
	Delete(ctx context.Context, id string) error

	// Clear removes every entry
	Clear(ctx context.Context) error

	// Count returns the number of stored entries
	Count(ctx context.Context) (int64, error)

	// DisplayStoreInfo logs a summary of the store contents
	DisplayStoreInfo() error

	// Close releases the backend
	Close(ctx context.Context) error
}

func prepare(entry Entry) (Entry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	} else if err := validateID(entry.ID); err != nil {
		return Entry{}, err
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	return entry, nil
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidID
	}
	return nil
}
