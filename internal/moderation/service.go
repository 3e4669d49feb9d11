package moderation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/patitas/patitas-backend/internal/animals"
	"github.com/patitas/patitas-backend/internal/db/entities"
	"github.com/patitas/patitas-backend/internal/db/interfaces"
	"github.com/patitas/patitas-backend/internal/session"
	"github.com/patitas/patitas-backend/internal/store"
	"github.com/patitas/patitas-backend/internal/stories"
)

var (
	ErrNotFound      = errors.New("report not found")
	ErrForbidden     = errors.New("moderator role required")
	ErrEmptyReason   = errors.New("a reason is required")
	ErrTargetMissing = errors.New("reported content not found")
)

// Service handles content reports. Reporting is open to any signed-in
// user; resolution is moderator-only.
type Service struct {
	reports      interfaces.Repository
	storyReports interfaces.Repository
	animals      interfaces.Repository
	stories      interfaces.Repository
	profiles     interfaces.Repository
	animalSvc    *animals.Service
	storySvc     *stories.Service
	sessions     *session.Manager
	cache        *store.Cache
	logger       *zap.SugaredLogger
}

func NewService(database interfaces.Database, animalSvc *animals.Service, storySvc *stories.Service, sessions *session.Manager, cache *store.Cache, logger *zap.SugaredLogger) *Service {
	return &Service{
		reports:      database.Repository(entities.ReportSchema),
		storyReports: database.Repository(entities.StoryReportSchema),
		animals:      database.Repository(entities.AnimalSchema),
		stories:      database.Repository(entities.AdoptionStorySchema),
		profiles:     database.Repository(entities.ProfileSchema),
		animalSvc:    animalSvc,
		storySvc:     storySvc,
		sessions:     sessions,
		cache:        cache,
		logger:       logger,
	}
}

// ReportAnimal files a report against a listing. Reporting the same
// listing twice is not an error; the existing report is returned so the
// client can show "already reported" without a failure state.
func (s *Service) ReportAnimal(ctx context.Context, reporterID, animalID, reason string) (*entities.Report, bool, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, false, ErrEmptyReason
	}
	if _, err := s.animals.GetByID(ctx, interfaces.StringID(animalID)); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, false, ErrTargetMissing
		}
		return nil, false, fmt.Errorf("load animal: %w", err)
	}

	created, err := s.reports.Create(ctx, map[string]interface{}{
		"animal_id":   animalID,
		"reporter_id": reporterID,
		"reason":      reason,
	})
	if errors.Is(err, interfaces.ErrUniqueConstraint) {
		existing, err := s.reports.FindOne(ctx, &interfaces.Query{
			Where: &interfaces.Filters{Conditions: []interfaces.Filter{
				{Field: "animal_id", Value: animalID},
				{Field: "reporter_id", Value: reporterID},
			}},
		})
		if err != nil {
			return nil, false, fmt.Errorf("load existing report: %w", err)
		}
		report := entities.ReportFromRecord(existing)
		return &report, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("create report: %w", err)
	}

	report := entities.ReportFromRecord(created)
	return &report, true, nil
}

// ReportStory files a report against an adoption story, same dedup
// behavior as ReportAnimal.
func (s *Service) ReportStory(ctx context.Context, reporterID, storyID, reason string) (*entities.StoryReport, bool, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, false, ErrEmptyReason
	}
	if _, err := s.stories.GetByID(ctx, interfaces.StringID(storyID)); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, false, ErrTargetMissing
		}
		return nil, false, fmt.Errorf("load story: %w", err)
	}

	created, err := s.storyReports.Create(ctx, map[string]interface{}{
		"story_id":    storyID,
		"reporter_id": reporterID,
		"reason":      reason,
	})
	if errors.Is(err, interfaces.ErrUniqueConstraint) {
		existing, err := s.storyReports.FindOne(ctx, &interfaces.Query{
			Where: &interfaces.Filters{Conditions: []interfaces.Filter{
				{Field: "story_id", Value: storyID},
				{Field: "reporter_id", Value: reporterID},
			}},
		})
		if err != nil {
			return nil, false, fmt.Errorf("load existing report: %w", err)
		}
		report := entities.StoryReportFromRecord(existing)
		return &report, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("create story report: %w", err)
	}

	report := entities.StoryReportFromRecord(created)
	return &report, true, nil
}

// OpenReports lists unresolved listing reports, oldest first so the
// queue drains in arrival order.
func (s *Service) OpenReports(ctx context.Context, caller session.Identity) ([]entities.Report, error) {
	if !caller.IsModerator() {
		return nil, ErrForbidden
	}

	page, err := s.reports.FindMany(ctx, &interfaces.Query{
		Where: &interfaces.Filters{Conditions: []interfaces.Filter{
			{Field: "status", Value: entities.ReportStatusOpen},
		}},
		OrderBy: []interfaces.OrderBy{{Field: "created_at", Direction: "asc"}},
	})
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}

	list := make([]entities.Report, 0, len(page.Data))
	for _, record := range page.Data {
		list = append(list, entities.ReportFromRecord(record))
	}
	return list, nil
}

// OpenStoryReports lists unresolved story reports, oldest first.
func (s *Service) OpenStoryReports(ctx context.Context, caller session.Identity) ([]entities.StoryReport, error) {
	if !caller.IsModerator() {
		return nil, ErrForbidden
	}

	page, err := s.storyReports.FindMany(ctx, &interfaces.Query{
		Where: &interfaces.Filters{Conditions: []interfaces.Filter{
			{Field: "status", Value: entities.ReportStatusOpen},
		}},
		OrderBy: []interfaces.OrderBy{{Field: "created_at", Direction: "asc"}},
	})
	if err != nil {
		return nil, fmt.Errorf("list story reports: %w", err)
	}

	list := make([]entities.StoryReport, 0, len(page.Data))
	for _, record := range page.Data {
		list = append(list, entities.StoryReportFromRecord(record))
	}
	return list, nil
}

// Resolution describes what a moderator decided about a report.
type Resolution struct {
	// Dismiss closes the report without touching the content.
	Dismiss bool `json:"dismiss"`
	// RemoveContent deletes the reported listing.
	RemoveContent bool `json:"remove_content"`
	// BanPublisher suspends the listing's publisher.
	BanPublisher bool `json:"ban_publisher"`
}

// Resolve closes a listing report, optionally removing the content and
// banning its publisher.
func (s *Service) Resolve(ctx context.Context, caller session.Identity, reportID string, resolution Resolution) (*entities.Report, error) {
	if !caller.IsModerator() {
		return nil, ErrForbidden
	}

	record, err := s.reports.GetByID(ctx, interfaces.StringID(reportID))
	if errors.Is(err, interfaces.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load report: %w", err)
	}
	report := entities.ReportFromRecord(record)

	status := entities.ReportStatusResolved
	if resolution.Dismiss {
		status = entities.ReportStatusDismissed
	}

	if resolution.RemoveContent || resolution.BanPublisher {
		animalRecord, err := s.animals.GetByID(ctx, interfaces.StringID(report.AnimalID))
		if err != nil && !errors.Is(err, interfaces.ErrNotFound) {
			return nil, fmt.Errorf("load reported animal: %w", err)
		}
		if err == nil {
			animal := entities.AnimalFromRecord(animalRecord)
			if resolution.BanPublisher {
				if err := s.banUser(ctx, animal.UserID); err != nil {
					return nil, err
				}
			}
			if resolution.RemoveContent {
				// Deleting the animal cascades this report away, so
				// record the resolution first.
				if _, err := s.reports.Update(ctx, interfaces.StringID(reportID), map[string]interface{}{"status": status}); err != nil {
					return nil, fmt.Errorf("update report: %w", err)
				}
				if err := s.animalSvc.Delete(ctx, caller, report.AnimalID); err != nil && !errors.Is(err, animals.ErrNotFound) {
					return nil, fmt.Errorf("remove reported animal: %w", err)
				}
				report.Status = status
				return &report, nil
			}
		}
	}

	updated, err := s.reports.Update(ctx, interfaces.StringID(reportID), map[string]interface{}{"status": status})
	if err != nil {
		return nil, fmt.Errorf("update report: %w", err)
	}
	report = entities.ReportFromRecord(updated)
	return &report, nil
}

// ResolveStoryReport closes a story report, optionally removing the
// story and banning its author.
func (s *Service) ResolveStoryReport(ctx context.Context, caller session.Identity, reportID string, resolution Resolution) (*entities.StoryReport, error) {
	if !caller.IsModerator() {
		return nil, ErrForbidden
	}

	record, err := s.storyReports.GetByID(ctx, interfaces.StringID(reportID))
	if errors.Is(err, interfaces.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load story report: %w", err)
	}
	report := entities.StoryReportFromRecord(record)

	status := entities.ReportStatusResolved
	if resolution.Dismiss {
		status = entities.ReportStatusDismissed
	}

	if resolution.RemoveContent || resolution.BanPublisher {
		storyRecord, err := s.stories.GetByID(ctx, interfaces.StringID(report.StoryID))
		if err != nil && !errors.Is(err, interfaces.ErrNotFound) {
			return nil, fmt.Errorf("load reported story: %w", err)
		}
		if err == nil {
			story := entities.AdoptionStoryFromRecord(storyRecord)
			if resolution.BanPublisher {
				if err := s.banUser(ctx, story.UserID); err != nil {
					return nil, err
				}
			}
			if resolution.RemoveContent {
				// Deleting the story cascades this report away, so record
				// the resolution first.
				if _, err := s.storyReports.Update(ctx, interfaces.StringID(reportID), map[string]interface{}{"status": status}); err != nil {
					return nil, fmt.Errorf("update story report: %w", err)
				}
				if err := s.storySvc.Delete(ctx, caller, report.StoryID); err != nil && !errors.Is(err, stories.ErrNotFound) {
					return nil, fmt.Errorf("remove reported story: %w", err)
				}
				report.Status = status
				return &report, nil
			}
		}
	}

	updated, err := s.storyReports.Update(ctx, interfaces.StringID(reportID), map[string]interface{}{"status": status})
	if err != nil {
		return nil, fmt.Errorf("update story report: %w", err)
	}
	report = entities.StoryReportFromRecord(updated)
	return &report, nil
}

func (s *Service) banUser(ctx context.Context, userID string) error {
	if _, err := s.profiles.Update(ctx, interfaces.StringID(userID), map[string]interface{}{"banned": true}); err != nil {
		return fmt.Errorf("ban user: %w", err)
	}
	if s.sessions != nil {
		s.sessions.Invalidate(ctx, userID)
	}
	if s.logger != nil {
		s.logger.Infow("User banned", "user_id", userID)
	}
	return nil
}
