package memory

import (
	"context"
	"sync"

	"github.com/patitas/patitas-backend/internal/db/interfaces"
)

// Database is an in-memory table store. It enforces the same unique and
// foreign-key constraints the SQL schema declares, which is what makes
// it a faithful stand-in for the hosted backend in tests.
type Database struct {
	tables    map[string]map[string]map[string]interface{} // table -> id -> record
	schemas   map[string]*interfaces.Schema
	connected bool
	mu        sync.RWMutex
}

func NewDatabase() *Database {
	return &Database{
		tables:  make(map[string]map[string]map[string]interface{}),
		schemas: make(map[string]*interfaces.Schema),
	}
}

func (d *Database) Connect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected = true
	return nil
}

func (d *Database) Disconnect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected = false
	return nil
}

func (d *Database) IsHealthy(ctx context.Context) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

func (d *Database) Repository(schema *interfaces.Schema) interfaces.Repository {
	d.mu.Lock()
	d.schemas[schema.TableName] = schema
	if _, exists := d.tables[schema.TableName]; !exists {
		d.tables[schema.TableName] = make(map[string]map[string]interface{})
	}
	d.mu.Unlock()

	return NewRepository(d, schema)
}

func (d *Database) Migrate(ctx context.Context, schemas []*interfaces.Schema) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, schema := range schemas {
		d.schemas[schema.TableName] = schema
		if _, exists := d.tables[schema.TableName]; !exists {
			d.tables[schema.TableName] = make(map[string]map[string]interface{})
		}
	}
	return nil
}

func (d *Database) Seed(ctx context.Context, schema *interfaces.Schema, data []map[string]interface{}) error {
	repo := d.Repository(schema)
	for _, record := range data {
		if _, err := repo.Create(ctx, record); err != nil {
			return err
		}
	}
	return nil
}
