package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patitas/patitas-backend/internal/db/interfaces"
)

var parentSchema = &interfaces.Schema{
	TableName: "parents",
	Fields: map[string]interfaces.FieldSchema{
		"id":         {Type: "string", PrimaryKey: true},
		"name":       {Type: "string"},
		"rank":       {Type: "int", DefaultValue: 0},
		"created_at": {Type: "time"},
		"updated_at": {Type: "time"},
	},
	Indexes: []interfaces.Index{
		{Name: "uq_parents_name", Columns: []string{"name"}, Unique: true},
	},
}

var childSchema = &interfaces.Schema{
	TableName: "children",
	Fields: map[string]interfaces.FieldSchema{
		"id": {Type: "string", PrimaryKey: true},
		"parent_id": {Type: "string", ForeignKey: &interfaces.ForeignKey{
			Table:    "parents",
			Column:   "id",
			OnDelete: "CASCADE",
		}},
		"label":      {Type: "string"},
		"read":       {Type: "bool", DefaultValue: false},
		"created_at": {Type: "time"},
		"updated_at": {Type: "time"},
	},
}

func newTestDB(t *testing.T) (*Database, interfaces.Repository, interfaces.Repository) {
	t.Helper()
	db := NewDatabase()
	require.NoError(t, db.Connect(context.Background()))
	require.NoError(t, db.Migrate(context.Background(), []*interfaces.Schema{parentSchema, childSchema}))
	return db, db.Repository(parentSchema), db.Repository(childSchema)
}

func TestCreateAssignsIDAndDefaults(t *testing.T) {
	ctx := context.Background()
	_, parents, _ := newTestDB(t)

	record, err := parents.Create(ctx, map[string]interface{}{"name": "uno"})
	require.NoError(t, err)

	assert.NotEmpty(t, record["id"])
	assert.Equal(t, 0, record["rank"], "schema default applied")
	assert.IsType(t, time.Time{}, record["created_at"])
}

func TestUniqueIndexEnforced(t *testing.T) {
	ctx := context.Background()
	_, parents, _ := newTestDB(t)

	_, err := parents.Create(ctx, map[string]interface{}{"name": "uno"})
	require.NoError(t, err)

	_, err = parents.Create(ctx, map[string]interface{}{"name": "uno"})
	assert.ErrorIs(t, err, interfaces.ErrUniqueConstraint)
}

func TestForeignKeyEnforced(t *testing.T) {
	ctx := context.Background()
	_, _, children := newTestDB(t)

	_, err := children.Create(ctx, map[string]interface{}{
		"parent_id": "ghost",
		"label":     "orphan",
	})
	assert.ErrorIs(t, err, interfaces.ErrForeignKeyConstraint)
}

func TestCascadeDelete(t *testing.T) {
	ctx := context.Background()
	_, parents, children := newTestDB(t)

	parent, err := parents.Create(ctx, map[string]interface{}{"name": "uno"})
	require.NoError(t, err)
	parentID := parent["id"].(string)

	for i := 0; i < 3; i++ {
		_, err := children.Create(ctx, map[string]interface{}{
			"parent_id": parentID,
			"label":     "c",
		})
		require.NoError(t, err)
	}

	require.NoError(t, parents.Delete(ctx, interfaces.StringID(parentID)))

	count, err := children.Count(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestUpdateMany(t *testing.T) {
	ctx := context.Background()
	_, parents, children := newTestDB(t)

	parent, err := parents.Create(ctx, map[string]interface{}{"name": "uno"})
	require.NoError(t, err)
	parentID := parent["id"].(string)

	for _, label := range []string{"a", "b", "c"} {
		_, err := children.Create(ctx, map[string]interface{}{
			"parent_id": parentID,
			"label":     label,
		})
		require.NoError(t, err)
	}

	changed, err := children.UpdateMany(ctx, &interfaces.Filters{Conditions: []interfaces.Filter{
		{Field: "read", Value: false},
		{Field: "label", Operator: &interfaces.FilterOperator{Ne: "c"}},
	}}, map[string]interface{}{"read": true})
	require.NoError(t, err)
	assert.EqualValues(t, 2, changed)

	unread, err := children.Count(ctx, &interfaces.Query{
		Where: &interfaces.Filters{Conditions: []interfaces.Filter{
			{Field: "read", Value: false},
		}},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)
}

func TestFindManyPaginationAndTotal(t *testing.T) {
	ctx := context.Background()
	_, parents, _ := newTestDB(t)

	for _, name := range []string{"a", "b", "c", "d", "e"} {
		_, err := parents.Create(ctx, map[string]interface{}{"name": name})
		require.NoError(t, err)
	}

	limit, offset := 2, 2
	page, err := parents.FindMany(ctx, &interfaces.Query{
		OrderBy: []interfaces.OrderBy{{Field: "name", Direction: "asc"}},
		Limit:   &limit,
		Offset:  &offset,
	})
	require.NoError(t, err)

	assert.EqualValues(t, 5, page.Total, "total counts the unpaginated match set")
	require.Len(t, page.Data, 2)
	assert.Equal(t, "c", page.Data[0]["name"])
	assert.Equal(t, "d", page.Data[1]["name"])
}

func TestTimeComparisonFilters(t *testing.T) {
	ctx := context.Background()
	_, parents, _ := newTestDB(t)

	record, err := parents.Create(ctx, map[string]interface{}{"name": "reciente"})
	require.NoError(t, err)

	cutoff := time.Now().Add(-5 * time.Minute)
	count, err := parents.Count(ctx, &interfaces.Query{
		Where: &interfaces.Filters{Conditions: []interfaces.Filter{
			{Field: "created_at", Operator: &interfaces.FilterOperator{Gt: cutoff}},
		}},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	_, err = parents.Update(ctx, interfaces.StringID(record["id"].(string)), map[string]interface{}{
		"created_at": time.Now().Add(-time.Hour),
	})
	require.NoError(t, err)

	count, err = parents.Count(ctx, &interfaces.Query{
		Where: &interfaces.Filters{Conditions: []interfaces.Filter{
			{Field: "created_at", Operator: &interfaces.FilterOperator{Gt: cutoff}},
		}},
	})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestLikeFilter(t *testing.T) {
	ctx := context.Background()
	_, parents, _ := newTestDB(t)

	_, err := parents.Create(ctx, map[string]interface{}{"name": "Toby el perro"})
	require.NoError(t, err)

	// Case-sensitive by default.
	count, err := parents.Count(ctx, &interfaces.Query{
		Where: &interfaces.Filters{Conditions: []interfaces.Filter{
			{Field: "name", Operator: &interfaces.FilterOperator{Like: "%toby%"}},
		}},
	})
	require.NoError(t, err)
	assert.Zero(t, count)

	insensitive := false
	count, err = parents.Count(ctx, &interfaces.Query{
		Where: &interfaces.Filters{Conditions: []interfaces.Filter{
			{Field: "name", Operator: &interfaces.FilterOperator{Like: "%toby%", CaseSensitive: &insensitive}},
		}},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}
