package wizard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patitas/patitas-backend/internal/db"
	"github.com/patitas/patitas-backend/internal/db/entities"
	"github.com/patitas/patitas-backend/internal/db/interfaces"
	"github.com/patitas/patitas-backend/internal/feed"
	"github.com/patitas/patitas-backend/internal/media"
	"github.com/patitas/patitas-backend/internal/store"
)

type fixture struct {
	submitter *Submitter
	database  interfaces.Database
	uploader  *media.MemoryUploader
	cache     *store.Cache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	database := db.NewInMemoryDatabase()
	require.NoError(t, database.Connect(ctx))
	require.NoError(t, database.Migrate(ctx, db.AllSchemas()))

	profiles := database.Repository(entities.ProfileSchema)
	_, err := profiles.Create(ctx, map[string]interface{}{
		"id":           "publisher",
		"display_name": "Publisher",
	})
	require.NoError(t, err)
	_, err = profiles.Create(ctx, map[string]interface{}{
		"id":           "banned-user",
		"display_name": "Banned",
		"banned":       true,
	})
	require.NoError(t, err)

	uploader := media.NewMemoryUploader()
	cache := store.NewInMemoryCache(nil)
	return &fixture{
		submitter: NewSubmitter(database, uploader, cache, nil, 5*time.Minute, 5, nil),
		database:  database,
		uploader:  uploader,
		cache:     cache,
	}
}

func images(n int) []media.Image {
	list := make([]media.Image, n)
	for i := range list {
		list[i] = media.Image{Data: []byte{byte(i)}, ContentType: "image/jpeg", Filename: "img.jpg"}
	}
	return list
}

func lostDraft(n int) Draft {
	return Draft{
		Type:      TypeLost,
		Province:  "San Juan",
		Latitude:  floatPtr(-31.5375),
		Longitude: floatPtr(-68.5364),
		Reference: "Plaza 25 de Mayo",
		Name:      "Toby",
		Species:   entities.SpeciesDog,
		Age:       "2 años",
		Size:      "mediano",
		Images:    images(n),
	}
}

func adoptionDraft(n int) Draft {
	return Draft{
		Type:        TypeAdoption,
		Province:    "San Juan",
		Area:        "Rivadavia",
		Provenance:  "particular",
		AntiSaleAck: true,
		Name:        "Luna",
		Species:     entities.SpeciesCat,
		Age:         "3",
		Size:        "pequeño",
		Description: "muy tranquila",
		Images:      images(n),
	}
}

func (f *fixture) animalCount(t *testing.T) int64 {
	t.Helper()
	count, err := f.database.Repository(entities.AnimalSchema).Count(context.Background(), nil)
	require.NoError(t, err)
	return count
}

func TestSubmitZeroImagesFailsBeforeAnySideEffect(t *testing.T) {
	f := newFixture(t)

	draft := lostDraft(0)
	_, err := f.submitter.Submit(context.Background(), "publisher", draft)
	assert.ErrorIs(t, err, ErrNoImages)

	assert.Zero(t, f.uploader.Count(), "no upload happened")
	assert.Zero(t, f.animalCount(t), "no row inserted")
}

func TestSubmitTooManyImages(t *testing.T) {
	f := newFixture(t)
	_, err := f.submitter.Submit(context.Background(), "publisher", lostDraft(6))
	assert.ErrorIs(t, err, ErrTooManyImages)
	assert.Zero(t, f.uploader.Count())
}

func TestSubmitRateLimit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.submitter.Submit(ctx, "publisher", lostDraft(1))
	require.NoError(t, err)

	_, err = f.submitter.Submit(ctx, "publisher", lostDraft(1))
	assert.ErrorIs(t, err, ErrRateLimited)

	// Backdate the first publication past the cooldown window.
	animals := f.database.Repository(entities.AnimalSchema)
	_, err = animals.Update(ctx, interfaces.StringID(first.ID), map[string]interface{}{
		"created_at": time.Now().Add(-10 * time.Minute),
	})
	require.NoError(t, err)

	_, err = f.submitter.Submit(ctx, "publisher", lostDraft(1))
	assert.NoError(t, err)
}

func TestSubmitBannedUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.submitter.Submit(context.Background(), "banned-user", lostDraft(1))
	assert.ErrorIs(t, err, ErrBanned)
	assert.Zero(t, f.uploader.Count(), "ban check runs before uploads")
}

func TestSubmitAdoptionRequiresAntiSaleAck(t *testing.T) {
	f := newFixture(t)
	draft := adoptionDraft(1)
	draft.AntiSaleAck = false
	_, err := f.submitter.Submit(context.Background(), "publisher", draft)
	assert.ErrorIs(t, err, ErrNoAntiSaleAck)
}

func TestSubmitAdoptionStatusConstant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	draft := adoptionDraft(1)
	draft.Name = ""
	draft.NameUnknown = true
	draft.AgeApproximate = true
	draft.Personality = "curiosa"
	draft.HealthInfo = "castrada"

	animal, err := f.submitter.Submit(ctx, "publisher", draft)
	require.NoError(t, err)

	assert.Equal(t, entities.StatusAvailable, animal.Status, "adoption always lands as available")
	assert.Equal(t, entities.UnknownName, animal.Name)
	assert.Equal(t, "3 (aprox.)", animal.Age)
	assert.Contains(t, animal.Description, "Procedencia: particular.")
	assert.Equal(t, "Rivadavia, San Juan", animal.Location)
	assert.Nil(t, animal.Latitude, "adoption records carry no pin")
}

func TestSubmitUploadFailureCompensates(t *testing.T) {
	f := newFixture(t)
	f.uploader.FailAfter = 1

	_, err := f.submitter.Submit(context.Background(), "publisher", lostDraft(3))
	require.Error(t, err)

	assert.Zero(t, f.uploader.Count(), "the successful upload was removed")
	assert.Zero(t, f.animalCount(t))
}

// galleryFailDB fails inserts into animal_images, simulating a backend
// error after the parent row exists.
type galleryFailDB struct {
	interfaces.Database
}

type failCreateRepo struct {
	interfaces.Repository
}

func (r *failCreateRepo) Create(ctx context.Context, data map[string]interface{}) (map[string]interface{}, error) {
	return nil, errors.New("insert rejected")
}

func (d *galleryFailDB) Repository(schema *interfaces.Schema) interfaces.Repository {
	repo := d.Database.Repository(schema)
	if schema.TableName == entities.AnimalImageSchema.TableName {
		return &failCreateRepo{Repository: repo}
	}
	return repo
}

func TestSubmitGalleryFailureRollsBackParent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	submitter := NewSubmitter(&galleryFailDB{Database: f.database}, f.uploader, f.cache, nil, 5*time.Minute, 5, nil)
	_, err := submitter.Submit(ctx, "publisher", lostDraft(2))
	require.Error(t, err)

	assert.Zero(t, f.animalCount(t), "parent row deleted when a gallery row fails")
	assert.Zero(t, f.uploader.Count(), "all uploads removed")
}

func TestSubmitLostReportEndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	animalsRepo := f.database.Repository(entities.AnimalSchema)

	// An older listing so the new report has something to outrank.
	_, err := f.submitter.Submit(ctx, "publisher", adoptionDraft(1))
	require.NoError(t, err)
	page, err := animalsRepo.FindMany(ctx, nil)
	require.NoError(t, err)
	_, err = animalsRepo.Update(ctx, interfaces.StringID(page.Data[0]["id"].(string)), map[string]interface{}{
		"created_at": time.Now().Add(-time.Hour),
	})
	require.NoError(t, err)

	feedStore := feed.NewStore(animalsRepo, 8, nil)
	_, err = feedStore.Refresh(ctx)
	require.NoError(t, err)

	bridge := feed.NewBridge(ctx, f.cache, entities.AnimalSchema.TableName, feedStore, nil, nil)
	defer bridge.Close()

	animal, err := f.submitter.Submit(ctx, "publisher", lostDraft(2))
	require.NoError(t, err)

	assert.Equal(t, entities.StatusLost, animal.Status)
	require.NotNil(t, animal.Latitude)
	require.NotNil(t, animal.Longitude)
	assert.InDelta(t, -31.5375, *animal.Latitude, 1e-9)
	assert.InDelta(t, -68.5364, *animal.Longitude, 1e-9)
	require.NotNil(t, animal.Province)
	assert.Equal(t, "San Juan", *animal.Province)

	gallery, err := f.database.Repository(entities.AnimalImageSchema).FindMany(ctx, &interfaces.Query{
		Where: &interfaces.Filters{Conditions: []interfaces.Filter{
			{Field: "animal_id", Value: animal.ID},
		}},
		OrderBy: []interfaces.OrderBy{{Field: "display_order", Direction: "asc"}},
	})
	require.NoError(t, err)
	require.Len(t, gallery.Data, 2)
	assert.Equal(t, 0, entities.AnimalImageFromRecord(gallery.Data[0]).DisplayOrder)
	assert.Equal(t, 1, entities.AnimalImageFromRecord(gallery.Data[1]).DisplayOrder)
	assert.Equal(t, entities.AnimalImageFromRecord(gallery.Data[0]).ImageURL, animal.ImageURL,
		"first upload becomes the cover image")

	// The change event makes the live feed reload with the new report first.
	assert.Eventually(t, func() bool {
		list, _, _ := feedStore.Snapshot()
		return len(list) == 2 && list[0].ID == animal.ID
	}, 2*time.Second, 10*time.Millisecond)
}
