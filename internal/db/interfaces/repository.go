package interfaces

import "context"

// Repository provides table-like operations for one schema.
type Repository interface {
	// GetByID retrieves a single record by its ID
	GetByID(ctx context.Context, id ID) (map[string]interface{}, error)

	// FindOne retrieves the first record matching the query
	FindOne(ctx context.Context, query *Query) (map[string]interface{}, error)

	// FindMany retrieves records matching the query with pagination and
	// an exact count of the unpaginated match set.
	FindMany(ctx context.Context, query *Query) (*ResultPage, error)

	// Create inserts a new record
	Create(ctx context.Context, data map[string]interface{}) (map[string]interface{}, error)

	// Update modifies an existing record by ID
	Update(ctx context.Context, id ID, data map[string]interface{}) (map[string]interface{}, error)

	// UpdateMany applies the same field changes to every record matching
	// the filters and reports how many rows changed.
	UpdateMany(ctx context.Context, where *Filters, data map[string]interface{}) (int64, error)

	// Delete removes a record by ID
	Delete(ctx context.Context, id ID) error

	// DeleteMany removes every record matching the filters.
	DeleteMany(ctx context.Context, where *Filters) (int64, error)

	// Count returns the number of records matching the query
	Count(ctx context.Context, query *Query) (int64, error)

	// GetSchema returns the schema for this repository
	GetSchema() *Schema
}
