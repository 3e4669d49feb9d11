package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patitas/patitas-backend/internal/db/interfaces"
	"github.com/patitas/patitas-backend/internal/db/query"
)

// Repository implements interfaces.Repository on the in-memory store.
type Repository struct {
	db        *Database
	schema    *interfaces.Schema
	builder   *query.Builder
	tableName string
}

func NewRepository(db *Database, schema *interfaces.Schema) *Repository {
	return &Repository{
		db:        db,
		schema:    schema,
		builder:   query.NewBuilder(schema),
		tableName: schema.TableName,
	}
}

func (r *Repository) GetByID(ctx context.Context, id interfaces.ID) (map[string]interface{}, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	table, exists := r.db.tables[r.tableName]
	if !exists {
		return nil, interfaces.ErrNotFound
	}

	record, exists := table[id.String()]
	if !exists {
		return nil, interfaces.ErrNotFound
	}

	return copyRecord(record), nil
}

func (r *Repository) FindOne(ctx context.Context, q *interfaces.Query) (map[string]interface{}, error) {
	if q == nil {
		q = &interfaces.Query{}
	}

	limit := 1
	q.Limit = &limit

	result, err := r.FindMany(ctx, q)
	if err != nil {
		return nil, err
	}

	if len(result.Data) == 0 {
		return nil, interfaces.ErrNotFound
	}

	return result.Data[0], nil
}

func (r *Repository) FindMany(ctx context.Context, q *interfaces.Query) (*interfaces.ResultPage, error) {
	if q == nil {
		q = &interfaces.Query{}
	}

	r.db.mu.RLock()
	table, exists := r.db.tables[r.tableName]
	if !exists {
		r.db.mu.RUnlock()
		return &interfaces.ResultPage{Data: []map[string]interface{}{}}, nil
	}

	var records []map[string]interface{}
	for _, record := range table {
		records = append(records, copyRecord(record))
	}
	r.db.mu.RUnlock()

	if q.Where != nil {
		var filtered []map[string]interface{}
		for _, record := range records {
			if r.builder.MatchesFilters(record, q.Where) {
				filtered = append(filtered, record)
			}
		}
		records = filtered
	}

	total := int64(len(records))

	if len(q.OrderBy) > 0 {
		records = r.builder.ApplySort(records, q.OrderBy)
	}

	records = r.builder.ApplyPagination(records, q.Limit, q.Offset)
	if records == nil {
		records = []map[string]interface{}{}
	}

	return &interfaces.ResultPage{Data: records, Total: total}, nil
}

func (r *Repository) Create(ctx context.Context, data map[string]interface{}) (map[string]interface{}, error) {
	if err := r.builder.ValidateData(data); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	record := copyRecord(data)

	if _, exists := record["id"]; !exists {
		record["id"] = uuid.New().String()
	}

	now := time.Now()
	record["created_at"] = now
	record["updated_at"] = now

	for fieldName, fieldSchema := range r.schema.Fields {
		if _, exists := record[fieldName]; !exists && fieldSchema.DefaultValue != nil {
			record[fieldName] = fieldSchema.DefaultValue
		}
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, exists := r.db.tables[r.tableName]; !exists {
		r.db.tables[r.tableName] = make(map[string]map[string]interface{})
	}

	table := r.db.tables[r.tableName]
	id := record["id"].(string)

	if _, exists := table[id]; exists {
		return nil, fmt.Errorf("%w: id '%s'", interfaces.ErrUniqueConstraint, id)
	}

	if err := r.validateUniqueConstraints(table, record, ""); err != nil {
		return nil, err
	}

	if err := r.validateForeignKeys(record); err != nil {
		return nil, err
	}

	table[id] = record

	return copyRecord(record), nil
}

func (r *Repository) Update(ctx context.Context, id interfaces.ID, data map[string]interface{}) (map[string]interface{}, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	return r.updateLocked(id.String(), data)
}

func (r *Repository) UpdateMany(ctx context.Context, where *interfaces.Filters, data map[string]interface{}) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	table, exists := r.db.tables[r.tableName]
	if !exists {
		return 0, nil
	}

	var ids []string
	for id, record := range table {
		if r.builder.MatchesFilters(record, where) {
			ids = append(ids, id)
		}
	}

	for _, id := range ids {
		if _, err := r.updateLocked(id, data); err != nil {
			return 0, err
		}
	}

	return int64(len(ids)), nil
}

func (r *Repository) updateLocked(id string, data map[string]interface{}) (map[string]interface{}, error) {
	table, exists := r.db.tables[r.tableName]
	if !exists {
		return nil, interfaces.ErrNotFound
	}

	existing, exists := table[id]
	if !exists {
		return nil, interfaces.ErrNotFound
	}

	updated := copyRecord(existing)
	for k, v := range data {
		updated[k] = v
	}
	updated["updated_at"] = time.Now()

	if err := r.validateUniqueConstraints(table, updated, id); err != nil {
		return nil, err
	}

	if err := r.validateForeignKeys(updated); err != nil {
		return nil, err
	}

	table[id] = updated

	return copyRecord(updated), nil
}

func (r *Repository) Delete(ctx context.Context, id interfaces.ID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	table, exists := r.db.tables[r.tableName]
	if !exists {
		return interfaces.ErrNotFound
	}

	if _, exists := table[id.String()]; !exists {
		return interfaces.ErrNotFound
	}

	if err := r.cascadeDeleteLocked(id.String()); err != nil {
		return err
	}

	delete(table, id.String())
	return nil
}

func (r *Repository) DeleteMany(ctx context.Context, where *interfaces.Filters) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	table, exists := r.db.tables[r.tableName]
	if !exists {
		return 0, nil
	}

	var ids []string
	for id, record := range table {
		if r.builder.MatchesFilters(record, where) {
			ids = append(ids, id)
		}
	}

	for _, id := range ids {
		if err := r.cascadeDeleteLocked(id); err != nil {
			return 0, err
		}
		delete(table, id)
	}

	return int64(len(ids)), nil
}

func (r *Repository) Count(ctx context.Context, q *interfaces.Query) (int64, error) {
	if q == nil {
		r.db.mu.RLock()
		defer r.db.mu.RUnlock()
		table, exists := r.db.tables[r.tableName]
		if !exists {
			return 0, nil
		}
		return int64(len(table)), nil
	}

	result, err := r.FindMany(ctx, &interfaces.Query{Where: q.Where})
	if err != nil {
		return 0, err
	}
	return result.Total, nil
}

func (r *Repository) GetSchema() *interfaces.Schema {
	return r.schema
}

func (r *Repository) validateUniqueConstraints(table map[string]map[string]interface{}, record map[string]interface{}, excludeID string) error {
	for fieldName, fieldSchema := range r.schema.Fields {
		if !fieldSchema.Unique {
			continue
		}

		value, exists := record[fieldName]
		if !exists || value == nil {
			continue
		}

		for id, existing := range table {
			if id == excludeID {
				continue
			}
			if existingValue, ok := existing[fieldName]; ok && existingValue == value {
				return fmt.Errorf("%w: field '%s' value '%v'", interfaces.ErrUniqueConstraint, fieldName, value)
			}
		}
	}

	for _, index := range r.schema.Indexes {
		if !index.Unique {
			continue
		}

		for id, existing := range table {
			if id == excludeID {
				continue
			}

			match := true
			for _, column := range index.Columns {
				if existing[column] != record[column] {
					match = false
					break
				}
			}
			if match {
				return fmt.Errorf("%w: index '%s'", interfaces.ErrUniqueConstraint, index.Name)
			}
		}
	}

	return nil
}

func (r *Repository) validateForeignKeys(record map[string]interface{}) error {
	for fieldName, fieldSchema := range r.schema.Fields {
		fk := fieldSchema.ForeignKey
		if fk == nil {
			continue
		}

		value, exists := record[fieldName]
		if !exists || value == nil {
			continue
		}

		target, ok := r.db.tables[fk.Table]
		if !ok {
			return fmt.Errorf("%w: table '%s' missing", interfaces.ErrForeignKeyConstraint, fk.Table)
		}

		id, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: field '%s' must reference by id", interfaces.ErrForeignKeyConstraint, fieldName)
		}
		if _, ok := target[id]; !ok {
			return fmt.Errorf("%w: %s '%s' not found", interfaces.ErrForeignKeyConstraint, fk.Table, id)
		}
	}

	return nil
}

// cascadeDeleteLocked removes dependent rows whose schema declares a
// CASCADE foreign key onto this table.
func (r *Repository) cascadeDeleteLocked(id string) error {
	for tableName, schema := range r.db.schemas {
		for fieldName, fieldSchema := range schema.Fields {
			fk := fieldSchema.ForeignKey
			if fk == nil || fk.Table != r.tableName {
				continue
			}

			dependents := r.db.tables[tableName]
			for depID, dep := range dependents {
				if dep[fieldName] != id {
					continue
				}
				switch fk.OnDelete {
				case "CASCADE":
					delete(dependents, depID)
				case "SET_NULL":
					dep[fieldName] = nil
				default:
					return fmt.Errorf("%w: %s still referenced by %s", interfaces.ErrForeignKeyConstraint, id, tableName)
				}
			}
		}
	}
	return nil
}

func copyRecord(record map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(record))
	for k, v := range record {
		result[k] = v
	}
	return result
}
