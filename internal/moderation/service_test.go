package moderation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patitas/patitas-backend/internal/animals"
	"github.com/patitas/patitas-backend/internal/db"
	"github.com/patitas/patitas-backend/internal/db/entities"
	"github.com/patitas/patitas-backend/internal/db/interfaces"
	"github.com/patitas/patitas-backend/internal/media"
	"github.com/patitas/patitas-backend/internal/session"
	"github.com/patitas/patitas-backend/internal/store"
	"github.com/patitas/patitas-backend/internal/stories"
)

type fixture struct {
	svc      *Service
	database interfaces.Database
	animalID string
	storyID  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	database := db.NewInMemoryDatabase()
	require.NoError(t, database.Connect(ctx))
	require.NoError(t, database.Migrate(ctx, db.AllSchemas()))

	profiles := database.Repository(entities.ProfileSchema)
	for _, id := range []string{"publisher", "reporter", "second-reporter", "mod"} {
		role := entities.RoleUser
		if id == "mod" {
			role = entities.RoleModerator
		}
		_, err := profiles.Create(ctx, map[string]interface{}{
			"id":           id,
			"display_name": id,
			"role":         role,
		})
		require.NoError(t, err)
	}

	animal, err := database.Repository(entities.AnimalSchema).Create(ctx, map[string]interface{}{
		"name":        "Milo",
		"species":     entities.SpeciesDog,
		"status":      entities.StatusAvailable,
		"age":         "1 año",
		"size":        "mediano",
		"description": "inquieto",
		"location":    "San Juan",
		"image_url":   "mem://animals/milo",
		"user_id":     "publisher",
	})
	require.NoError(t, err)

	story, err := database.Repository(entities.AdoptionStorySchema).Create(ctx, map[string]interface{}{
		"animal_name": "Nieve",
		"story":       "Llegó a casa en invierno.",
		"image_url":   "mem://stories/nieve",
		"user_id":     "publisher",
	})
	require.NoError(t, err)

	cache := store.NewInMemoryCache(nil)
	uploader := media.NewMemoryUploader()
	animalSvc := animals.NewService(database, cache, uploader, nil)
	storySvc := stories.NewService(database, uploader, cache, nil)
	return &fixture{
		svc:      NewService(database, animalSvc, storySvc, nil, cache, nil),
		database: database,
		animalID: animal["id"].(string),
		storyID:  story["id"].(string),
	}
}

func asModerator() session.Identity {
	return session.Identity{UserID: "mod", Role: entities.RoleModerator}
}

func TestReportAnimalDedup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, created, err := f.svc.ReportAnimal(ctx, "reporter", f.animalID, "parece venta encubierta")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, entities.ReportStatusOpen, first.Status)

	second, created, err := f.svc.ReportAnimal(ctx, "reporter", f.animalID, "otra razón")
	require.NoError(t, err)
	assert.False(t, created, "duplicate report is idempotent, not an error")
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Reason, second.Reason, "original reason is kept")

	// A different reporter files an independent report.
	_, created, err = f.svc.ReportAnimal(ctx, "second-reporter", f.animalID, "fotos robadas")
	require.NoError(t, err)
	assert.True(t, created)
}

func TestReportValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, _, err := f.svc.ReportAnimal(ctx, "reporter", f.animalID, "   ")
	assert.ErrorIs(t, err, ErrEmptyReason)

	_, _, err = f.svc.ReportAnimal(ctx, "reporter", "missing", "razón")
	assert.ErrorIs(t, err, ErrTargetMissing)
}

func TestReportStoryDedup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, created, err := f.svc.ReportStory(ctx, "reporter", f.storyID, "contenido ofensivo")
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := f.svc.ReportStory(ctx, "reporter", f.storyID, "de nuevo")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestOpenReportsModeratorOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, _, err := f.svc.ReportAnimal(ctx, "reporter", f.animalID, "spam")
	require.NoError(t, err)

	_, err = f.svc.OpenReports(ctx, session.Identity{UserID: "reporter", Role: entities.RoleUser})
	assert.ErrorIs(t, err, ErrForbidden)

	list, err := f.svc.OpenReports(ctx, asModerator())
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestResolveDismiss(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	report, _, err := f.svc.ReportAnimal(ctx, "reporter", f.animalID, "spam")
	require.NoError(t, err)

	resolved, err := f.svc.Resolve(ctx, asModerator(), report.ID, Resolution{Dismiss: true})
	require.NoError(t, err)
	assert.Equal(t, entities.ReportStatusDismissed, resolved.Status)

	// The listing is untouched.
	_, err = f.database.Repository(entities.AnimalSchema).GetByID(ctx, interfaces.StringID(f.animalID))
	require.NoError(t, err)

	list, err := f.svc.OpenReports(ctx, asModerator())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestResolveRemoveContentAndBan(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	report, _, err := f.svc.ReportAnimal(ctx, "reporter", f.animalID, "venta encubierta")
	require.NoError(t, err)

	resolved, err := f.svc.Resolve(ctx, asModerator(), report.ID, Resolution{
		RemoveContent: true,
		BanPublisher:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, entities.ReportStatusResolved, resolved.Status)

	_, err = f.database.Repository(entities.AnimalSchema).GetByID(ctx, interfaces.StringID(f.animalID))
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	profile, err := f.database.Repository(entities.ProfileSchema).GetByID(ctx, interfaces.StringID("publisher"))
	require.NoError(t, err)
	assert.Equal(t, true, profile["banned"])
}

func TestOpenStoryReportsAndDismiss(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	report, _, err := f.svc.ReportStory(ctx, "reporter", f.storyID, "contenido ofensivo")
	require.NoError(t, err)

	_, err = f.svc.OpenStoryReports(ctx, session.Identity{UserID: "reporter", Role: entities.RoleUser})
	assert.ErrorIs(t, err, ErrForbidden)

	list, err := f.svc.OpenStoryReports(ctx, asModerator())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, report.ID, list[0].ID)

	resolved, err := f.svc.ResolveStoryReport(ctx, asModerator(), report.ID, Resolution{Dismiss: true})
	require.NoError(t, err)
	assert.Equal(t, entities.ReportStatusDismissed, resolved.Status)

	// The story is untouched and the queue drains.
	_, err = f.database.Repository(entities.AdoptionStorySchema).GetByID(ctx, interfaces.StringID(f.storyID))
	require.NoError(t, err)
	list, err = f.svc.OpenStoryReports(ctx, asModerator())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestResolveStoryReportRemoveAndBan(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	report, _, err := f.svc.ReportStory(ctx, "reporter", f.storyID, "fotos robadas")
	require.NoError(t, err)

	resolved, err := f.svc.ResolveStoryReport(ctx, asModerator(), report.ID, Resolution{
		RemoveContent: true,
		BanPublisher:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, entities.ReportStatusResolved, resolved.Status)

	_, err = f.database.Repository(entities.AdoptionStorySchema).GetByID(ctx, interfaces.StringID(f.storyID))
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	profile, err := f.database.Repository(entities.ProfileSchema).GetByID(ctx, interfaces.StringID("publisher"))
	require.NoError(t, err)
	assert.Equal(t, true, profile["banned"])
}

func TestResolveRequiresModerator(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	report, _, err := f.svc.ReportAnimal(ctx, "reporter", f.animalID, "spam")
	require.NoError(t, err)

	_, err = f.svc.Resolve(ctx, session.Identity{UserID: "reporter"}, report.ID, Resolution{Dismiss: true})
	assert.ErrorIs(t, err, ErrForbidden)
}
