package stories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/patitas/patitas-backend/internal/db/entities"
	"github.com/patitas/patitas-backend/internal/db/interfaces"
	"github.com/patitas/patitas-backend/internal/media"
	"github.com/patitas/patitas-backend/internal/session"
	"github.com/patitas/patitas-backend/internal/store"
)

var (
	ErrNotFound     = errors.New("story not found")
	ErrForbidden    = errors.New("not allowed")
	ErrMissingField = errors.New("animal name and story text are required")
)

// Service owns adoption stories. Stories keep living when the animal
// listing they came from is deleted, which is why animal_id is a plain
// nullable column and not a foreign key.
type Service struct {
	stories  interfaces.Repository
	uploader media.Uploader
	cache    *store.Cache
	logger   *zap.SugaredLogger
}

func NewService(database interfaces.Database, uploader media.Uploader, cache *store.Cache, logger *zap.SugaredLogger) *Service {
	return &Service{
		stories:  database.Repository(entities.AdoptionStorySchema),
		uploader: uploader,
		cache:    cache,
		logger:   logger,
	}
}

// Draft is the publishable content of a story.
type Draft struct {
	AnimalID   *string     `json:"animal_id,omitempty"`
	AnimalName string      `json:"animal_name"`
	Story      string      `json:"story"`
	Image      media.Image `json:"-"`
}

// Publish uploads the story image and inserts the row. A failed insert
// removes the uploaded object again.
func (s *Service) Publish(ctx context.Context, callerID string, draft Draft) (*entities.AdoptionStory, error) {
	draft.AnimalName = strings.TrimSpace(draft.AnimalName)
	draft.Story = strings.TrimSpace(draft.Story)
	if draft.AnimalName == "" || draft.Story == "" {
		return nil, ErrMissingField
	}

	imageURL := ""
	if len(draft.Image.Data) > 0 {
		url, err := s.uploader.Upload(ctx, draft.Image)
		if err != nil {
			return nil, fmt.Errorf("upload story image: %w", err)
		}
		imageURL = url
	}

	data := map[string]interface{}{
		"animal_name": draft.AnimalName,
		"story":       draft.Story,
		"image_url":   imageURL,
		"user_id":     callerID,
	}
	if draft.AnimalID != nil {
		data["animal_id"] = *draft.AnimalID
	}

	created, err := s.stories.Create(ctx, data)
	if err != nil {
		if imageURL != "" {
			if removeErr := s.uploader.Remove(ctx, imageURL); removeErr != nil && s.logger != nil {
				s.logger.Warnw("Story image cleanup failed", "url", imageURL, "error", removeErr)
			}
		}
		return nil, fmt.Errorf("create story: %w", err)
	}

	s.publishChange(ctx, store.ChangeInsert, created["id"].(string))
	story := entities.AdoptionStoryFromRecord(created)
	return &story, nil
}

// List returns every story, newest first.
func (s *Service) List(ctx context.Context) ([]entities.AdoptionStory, error) {
	page, err := s.stories.FindMany(ctx, &interfaces.Query{
		OrderBy: []interfaces.OrderBy{{Field: "created_at", Direction: "desc"}},
	})
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}

	list := make([]entities.AdoptionStory, 0, len(page.Data))
	for _, record := range page.Data {
		list = append(list, entities.AdoptionStoryFromRecord(record))
	}
	return list, nil
}

// Get returns one story.
func (s *Service) Get(ctx context.Context, id string) (*entities.AdoptionStory, error) {
	record, err := s.stories.GetByID(ctx, interfaces.StringID(id))
	if errors.Is(err, interfaces.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get story: %w", err)
	}
	story := entities.AdoptionStoryFromRecord(record)
	return &story, nil
}

// Delete removes a story. Only the author or a moderator may delete.
func (s *Service) Delete(ctx context.Context, caller session.Identity, id string) error {
	story, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if story.UserID != caller.UserID && !caller.IsModerator() {
		return ErrForbidden
	}

	if err := s.stories.Delete(ctx, interfaces.StringID(id)); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete story: %w", err)
	}

	if story.ImageURL != "" && s.uploader != nil {
		if err := s.uploader.Remove(ctx, story.ImageURL); err != nil && s.logger != nil {
			s.logger.Warnw("Story image removal failed", "story_id", id, "error", err)
		}
	}

	s.publishChange(ctx, store.ChangeDelete, id)
	return nil
}

func (s *Service) publishChange(ctx context.Context, action, id string) {
	if s.cache == nil {
		return
	}
	s.cache.PublishChange(ctx, store.ChangeEvent{
		Table:    entities.AdoptionStorySchema.TableName,
		Action:   action,
		RecordID: id,
	})
}
