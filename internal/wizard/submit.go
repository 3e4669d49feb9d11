package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/patitas/patitas-backend/internal/db/entities"
	"github.com/patitas/patitas-backend/internal/db/interfaces"
	"github.com/patitas/patitas-backend/internal/media"
	"github.com/patitas/patitas-backend/internal/metrics"
	"github.com/patitas/patitas-backend/internal/store"
)

var (
	ErrNoImages      = errors.New("at least one image is required")
	ErrTooManyImages = errors.New("too many images")
	ErrRateLimited   = errors.New("a recent publication exists, wait before publishing again")
	ErrBanned        = errors.New("account suspended")
	ErrNoAntiSaleAck = errors.New("anti-sale acknowledgement is required")
	ErrIncomplete    = errors.New("draft is incomplete")
)

// Submitter turns a completed draft into an animal row plus gallery
// rows. Submission is a compensated sequence: a failure after any
// upload removes what was already uploaded, and a failure after the
// parent insert removes the parent too.
type Submitter struct {
	animals  interfaces.Repository
	images   interfaces.Repository
	profiles interfaces.Repository
	uploader media.Uploader
	cache    *store.Cache
	metrics  *metrics.Metrics
	logger   *zap.SugaredLogger

	cooldown  time.Duration
	maxImages int
}

func NewSubmitter(database interfaces.Database, uploader media.Uploader, cache *store.Cache, m *metrics.Metrics, cooldown time.Duration, maxImages int, logger *zap.SugaredLogger) *Submitter {
	return &Submitter{
		animals:   database.Repository(entities.AnimalSchema),
		images:    database.Repository(entities.AnimalImageSchema),
		profiles:  database.Repository(entities.ProfileSchema),
		uploader:  uploader,
		cache:     cache,
		metrics:   m,
		logger:    logger,
		cooldown:  cooldown,
		maxImages: maxImages,
	}
}

// Submit runs the publication pipeline in a fixed order: image count,
// rate limit, ban check, uploads, parent insert, gallery inserts.
func (s *Submitter) Submit(ctx context.Context, userID string, draft Draft) (*entities.Animal, error) {
	if err := s.validate(draft); err != nil {
		return nil, err
	}
	if err := s.checkRateLimit(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.checkBan(ctx, userID); err != nil {
		return nil, err
	}

	urls, err := s.uploadAll(ctx, draft.Images)
	if err != nil {
		return nil, err
	}

	record, err := s.animals.Create(ctx, s.parentRecord(userID, draft, urls[0]))
	if err != nil {
		s.removeAll(ctx, urls)
		return nil, fmt.Errorf("create publication: %w", err)
	}
	animalID := record["id"].(string)

	for i, url := range urls {
		_, err := s.images.Create(ctx, map[string]interface{}{
			"animal_id":     animalID,
			"image_url":     url,
			"display_order": i,
		})
		if err != nil {
			if delErr := s.animals.Delete(ctx, interfaces.StringID(animalID)); delErr != nil && s.logger != nil {
				s.logger.Errorw("Publication rollback failed", "animal_id", animalID, "error", delErr)
			}
			s.removeAll(ctx, urls)
			return nil, fmt.Errorf("create gallery row %d: %w", i, err)
		}
	}

	if s.cache != nil {
		s.cache.PublishChange(ctx, store.ChangeEvent{
			Table:    entities.AnimalSchema.TableName,
			Action:   store.ChangeInsert,
			RecordID: animalID,
		})
	}
	if s.metrics != nil {
		s.metrics.RecordPublication(ctx, string(draft.Type))
	}

	animal := entities.AnimalFromRecord(record)
	return &animal, nil
}

func (s *Submitter) validate(draft Draft) error {
	if !draft.Type.Valid() {
		return ErrIncomplete
	}
	if len(draft.Images) == 0 {
		return ErrNoImages
	}
	if len(draft.Images) > s.maxImages {
		return fmt.Errorf("%w: limit is %d", ErrTooManyImages, s.maxImages)
	}
	if draft.Type == TypeAdoption && !draft.AntiSaleAck {
		return ErrNoAntiSaleAck
	}
	if draft.Species == "" {
		return ErrIncomplete
	}
	return nil
}

// checkRateLimit rejects the submission when the user published within
// the cooldown window. Enforced here, not in the client, so it holds
// across devices.
func (s *Submitter) checkRateLimit(ctx context.Context, userID string) error {
	since := time.Now().Add(-s.cooldown)
	count, err := s.animals.Count(ctx, &interfaces.Query{
		Where: &interfaces.Filters{Conditions: []interfaces.Filter{
			{Field: "user_id", Value: userID},
			{Field: "created_at", Operator: &interfaces.FilterOperator{Gt: since}},
		}},
	})
	if err != nil {
		return fmt.Errorf("rate limit check: %w", err)
	}
	if count > 0 {
		return ErrRateLimited
	}
	return nil
}

func (s *Submitter) checkBan(ctx context.Context, userID string) error {
	record, err := s.profiles.GetByID(ctx, interfaces.StringID(userID))
	if err != nil {
		return fmt.Errorf("ban check: %w", err)
	}
	if entities.ProfileFromRecord(record).Banned {
		return ErrBanned
	}
	return nil
}

// uploadAll uploads sequentially, removing everything uploaded so far
// on the first failure.
func (s *Submitter) uploadAll(ctx context.Context, images []media.Image) ([]string, error) {
	urls := make([]string, 0, len(images))
	for i, img := range images {
		url, err := s.uploader.Upload(ctx, img)
		if err != nil {
			s.removeAll(ctx, urls)
			if s.metrics != nil {
				s.metrics.RecordUploadFailure(ctx)
			}
			return nil, fmt.Errorf("upload image %d: %w", i, err)
		}
		urls = append(urls, url)
	}
	return urls, nil
}

func (s *Submitter) removeAll(ctx context.Context, urls []string) {
	for _, url := range urls {
		if err := s.uploader.Remove(ctx, url); err != nil && s.logger != nil {
			s.logger.Warnw("Upload compensation failed", "url", url, "error", err)
		}
	}
}

// parentRecord maps the draft onto the animals row for its type.
func (s *Submitter) parentRecord(userID string, draft Draft, coverURL string) map[string]interface{} {
	name := strings.TrimSpace(draft.Name)
	if draft.NameUnknown || name == "" {
		name = entities.UnknownName
	}
	if draft.Type == TypeStory && draft.Title != "" {
		name = strings.TrimSpace(draft.Title)
	}

	age := strings.TrimSpace(draft.Age)
	if draft.AgeApproximate && age != "" {
		age += " (aprox.)"
	}

	sex := draft.Sex
	if sex == "" {
		sex = entities.SexUnknown
	}

	description := strings.TrimSpace(draft.Description)
	if draft.Type == TypeAdoption && draft.Provenance != "" {
		description = fmt.Sprintf("Procedencia: %s. %s", draft.Provenance, description)
	}

	data := map[string]interface{}{
		"name":        name,
		"species":     draft.Species,
		"status":      draft.Type.Status(),
		"sex":         sex,
		"age":         age,
		"size":        draft.Size,
		"description": description,
		"location":    s.composeLocation(draft),
		"image_url":   coverURL,
		"user_id":     userID,
	}
	if draft.Province != "" {
		data["province"] = draft.Province
	}
	if draft.Personality != "" {
		data["personality"] = draft.Personality
	}
	if draft.HealthInfo != "" {
		data["health_info"] = draft.HealthInfo
	}
	if draft.Type == TypeLost && draft.Latitude != nil && draft.Longitude != nil {
		data["latitude"] = *draft.Latitude
		data["longitude"] = *draft.Longitude
	}
	return data
}

func (s *Submitter) composeLocation(draft Draft) string {
	var parts []string
	switch draft.Type {
	case TypeAdoption:
		if draft.Area != "" {
			parts = append(parts, draft.Area)
		}
	case TypeLost:
		if draft.Reference != "" {
			parts = append(parts, draft.Reference)
		}
	}
	if draft.Province != "" {
		parts = append(parts, draft.Province)
	}
	return strings.Join(parts, ", ")
}
