package animals

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/patitas/patitas-backend/internal/db/entities"
	"github.com/patitas/patitas-backend/internal/db/interfaces"
	"github.com/patitas/patitas-backend/internal/media"
	"github.com/patitas/patitas-backend/internal/session"
	"github.com/patitas/patitas-backend/internal/store"
)

var (
	ErrNotFound  = errors.New("animal not found")
	ErrForbidden = errors.New("not allowed")
)

// Detail is an animal together with its gallery.
type Detail struct {
	entities.Animal
	Images []entities.AnimalImage `json:"images"`
}

// Service owns reads and mutations of animal listings. Every mutation
// publishes a change event so live feeds reload.
type Service struct {
	animals  interfaces.Repository
	images   interfaces.Repository
	cache    *store.Cache
	uploader media.Uploader
	logger   *zap.SugaredLogger
}

func NewService(database interfaces.Database, cache *store.Cache, uploader media.Uploader, logger *zap.SugaredLogger) *Service {
	return &Service{
		animals:  database.Repository(entities.AnimalSchema),
		images:   database.Repository(entities.AnimalImageSchema),
		cache:    cache,
		uploader: uploader,
		logger:   logger,
	}
}

// Get returns one animal with its images, gallery order ascending.
func (s *Service) Get(ctx context.Context, id string) (*Detail, error) {
	record, err := s.animals.GetByID(ctx, interfaces.StringID(id))
	if errors.Is(err, interfaces.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get animal: %w", err)
	}

	page, err := s.images.FindMany(ctx, &interfaces.Query{
		Where: &interfaces.Filters{Conditions: []interfaces.Filter{
			{Field: "animal_id", Value: id},
		}},
		OrderBy: []interfaces.OrderBy{{Field: "display_order", Direction: "asc"}},
	})
	if err != nil {
		return nil, fmt.Errorf("get animal images: %w", err)
	}

	detail := &Detail{Animal: entities.AnimalFromRecord(record)}
	for _, img := range page.Data {
		detail.Images = append(detail.Images, entities.AnimalImageFromRecord(img))
	}
	return detail, nil
}

// ListByOwner returns every publication of one user, newest first.
func (s *Service) ListByOwner(ctx context.Context, userID string) ([]entities.Animal, error) {
	page, err := s.animals.FindMany(ctx, &interfaces.Query{
		Where: &interfaces.Filters{Conditions: []interfaces.Filter{
			{Field: "user_id", Value: userID},
		}},
		OrderBy: []interfaces.OrderBy{{Field: "created_at", Direction: "desc"}},
	})
	if err != nil {
		return nil, fmt.Errorf("list animals: %w", err)
	}

	list := make([]entities.Animal, 0, len(page.Data))
	for _, record := range page.Data {
		list = append(list, entities.AnimalFromRecord(record))
	}
	return list, nil
}

// UpdatePatch holds the editable fields of a listing. Nil fields are
// left untouched.
type UpdatePatch struct {
	Name        *string  `json:"name,omitempty"`
	Status      *string  `json:"status,omitempty"`
	Sex         *string  `json:"sex,omitempty"`
	Age         *string  `json:"age,omitempty"`
	Size        *string  `json:"size,omitempty"`
	Description *string  `json:"description,omitempty"`
	Personality *string  `json:"personality,omitempty"`
	HealthInfo  *string  `json:"health_info,omitempty"`
	Location    *string  `json:"location,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
}

func (p UpdatePatch) toRecord() map[string]interface{} {
	data := map[string]interface{}{}
	set := func(key string, v interface{}, present bool) {
		if present {
			data[key] = v
		}
	}
	set("name", deref(p.Name), p.Name != nil)
	set("status", deref(p.Status), p.Status != nil)
	set("sex", deref(p.Sex), p.Sex != nil)
	set("age", deref(p.Age), p.Age != nil)
	set("size", deref(p.Size), p.Size != nil)
	set("description", deref(p.Description), p.Description != nil)
	set("personality", deref(p.Personality), p.Personality != nil)
	set("health_info", deref(p.HealthInfo), p.HealthInfo != nil)
	set("location", deref(p.Location), p.Location != nil)
	if p.Latitude != nil {
		data["latitude"] = *p.Latitude
	}
	if p.Longitude != nil {
		data["longitude"] = *p.Longitude
	}
	return data
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Update edits a listing. Only the owner or a moderator may edit.
func (s *Service) Update(ctx context.Context, caller session.Identity, id string, patch UpdatePatch) (*entities.Animal, error) {
	if err := s.authorize(ctx, caller, id); err != nil {
		return nil, err
	}

	data := patch.toRecord()
	if patch.Status != nil && !validStatus(*patch.Status) {
		return nil, fmt.Errorf("invalid status %q", *patch.Status)
	}

	record, err := s.animals.Update(ctx, interfaces.StringID(id), data)
	if errors.Is(err, interfaces.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update animal: %w", err)
	}

	s.publishChange(ctx, store.ChangeUpdate, id)
	animal := entities.AnimalFromRecord(record)
	return &animal, nil
}

// MarkAdopted flips an adoption listing to its adopted state.
func (s *Service) MarkAdopted(ctx context.Context, caller session.Identity, id string) (*entities.Animal, error) {
	status := entities.StatusAdopted
	return s.Update(ctx, caller, id, UpdatePatch{Status: &status})
}

// Delete removes a listing, its gallery rows, and the stored objects.
// Object removal failures are logged and skipped; the rows are the
// source of truth and orphan objects are harmless.
func (s *Service) Delete(ctx context.Context, caller session.Identity, id string) error {
	if err := s.authorize(ctx, caller, id); err != nil {
		return err
	}

	detail, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.animals.Delete(ctx, interfaces.StringID(id)); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete animal: %w", err)
	}

	if s.uploader != nil {
		for _, img := range detail.Images {
			if err := s.uploader.Remove(ctx, img.ImageURL); err != nil && s.logger != nil {
				s.logger.Warnw("Gallery object removal failed", "animal_id", id, "url", img.ImageURL, "error", err)
			}
		}
		if detail.ImageURL != "" {
			if err := s.uploader.Remove(ctx, detail.ImageURL); err != nil && s.logger != nil {
				s.logger.Warnw("Cover object removal failed", "animal_id", id, "url", detail.ImageURL, "error", err)
			}
		}
	}

	s.publishChange(ctx, store.ChangeDelete, id)
	return nil
}

// authorize loads the record and checks the caller owns it or moderates.
func (s *Service) authorize(ctx context.Context, caller session.Identity, id string) error {
	record, err := s.animals.GetByID(ctx, interfaces.StringID(id))
	if errors.Is(err, interfaces.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load animal: %w", err)
	}

	animal := entities.AnimalFromRecord(record)
	if animal.UserID != caller.UserID && !caller.IsModerator() {
		return ErrForbidden
	}
	return nil
}

func (s *Service) publishChange(ctx context.Context, action, id string) {
	if s.cache == nil {
		return
	}
	s.cache.PublishChange(ctx, store.ChangeEvent{
		Table:    entities.AnimalSchema.TableName,
		Action:   action,
		RecordID: id,
	})
}

func validStatus(status string) bool {
	switch status {
	case entities.StatusAvailable, entities.StatusAdopted, entities.StatusLost, entities.StatusStory:
		return true
	}
	return false
}
