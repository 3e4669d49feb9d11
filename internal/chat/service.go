package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/patitas/patitas-backend/internal/db/entities"
	"github.com/patitas/patitas-backend/internal/db/interfaces"
	"github.com/patitas/patitas-backend/internal/store"
)

var (
	ErrNotFound       = errors.New("conversation not found")
	ErrNotParticipant = errors.New("not a conversation participant")
	ErrSelfChat       = errors.New("cannot start a conversation with yourself")
	ErrEmptyMessage   = errors.New("message is empty")
	ErrMessageTooLong = fmt.Errorf("message exceeds %d characters", entities.MaxMessageLength)
)

// Service owns conversations and messages. One conversation exists per
// (animal, adopter, publisher) triple; starting it twice returns the
// existing thread.
type Service struct {
	conversations interfaces.Repository
	messages      interfaces.Repository
	animals       interfaces.Repository
	cache         *store.Cache
	logger        *zap.SugaredLogger
}

func NewService(database interfaces.Database, cache *store.Cache, logger *zap.SugaredLogger) *Service {
	return &Service{
		conversations: database.Repository(entities.ConversationSchema),
		messages:      database.Repository(entities.MessageSchema),
		animals:       database.Repository(entities.AnimalSchema),
		cache:         cache,
		logger:        logger,
	}
}

// Start opens, or returns the existing, conversation between the caller
// and the publisher of an animal. The pre-check keeps the common path
// quiet; a concurrent duplicate insert trips the unique index and is
// resolved by re-reading.
func (s *Service) Start(ctx context.Context, callerID, animalID string) (*entities.Conversation, error) {
	record, err := s.animals.GetByID(ctx, interfaces.StringID(animalID))
	if errors.Is(err, interfaces.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load animal: %w", err)
	}
	publisherID := entities.AnimalFromRecord(record).UserID

	if publisherID == callerID {
		return nil, ErrSelfChat
	}

	if existing, err := s.findConversation(ctx, animalID, callerID, publisherID); err == nil {
		return existing, nil
	} else if !errors.Is(err, interfaces.ErrNotFound) {
		return nil, err
	}

	created, err := s.conversations.Create(ctx, map[string]interface{}{
		"animal_id":    animalID,
		"adopter_id":   callerID,
		"publisher_id": publisherID,
	})
	if errors.Is(err, interfaces.ErrUniqueConstraint) {
		return s.findConversation(ctx, animalID, callerID, publisherID)
	}
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	conversation := entities.ConversationFromRecord(created)
	return &conversation, nil
}

func (s *Service) findConversation(ctx context.Context, animalID, adopterID, publisherID string) (*entities.Conversation, error) {
	record, err := s.conversations.FindOne(ctx, &interfaces.Query{
		Where: &interfaces.Filters{Conditions: []interfaces.Filter{
			{Field: "animal_id", Value: animalID},
			{Field: "adopter_id", Value: adopterID},
			{Field: "publisher_id", Value: publisherID},
		}},
	})
	if err != nil {
		return nil, err
	}
	conversation := entities.ConversationFromRecord(record)
	return &conversation, nil
}

// ConversationView decorates a thread with what the inbox list renders.
type ConversationView struct {
	entities.Conversation
	UnreadCount int64 `json:"unread_count"`
}

// ListForUser returns every conversation the user participates in,
// most recently active first, with per-thread unread counts.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]ConversationView, error) {
	page, err := s.conversations.FindMany(ctx, &interfaces.Query{
		Where: &interfaces.Filters{
			OR: []*interfaces.Filters{
				{Conditions: []interfaces.Filter{{Field: "adopter_id", Value: userID}}},
				{Conditions: []interfaces.Filter{{Field: "publisher_id", Value: userID}}},
			},
		},
		OrderBy: []interfaces.OrderBy{{Field: "updated_at", Direction: "desc"}},
	})
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	views := make([]ConversationView, 0, len(page.Data))
	for _, record := range page.Data {
		conversation := entities.ConversationFromRecord(record)
		unread, err := s.unreadCount(ctx, conversation.ID, userID)
		if err != nil {
			return nil, err
		}
		views = append(views, ConversationView{Conversation: conversation, UnreadCount: unread})
	}
	return views, nil
}

func (s *Service) unreadCount(ctx context.Context, conversationID, viewerID string) (int64, error) {
	count, err := s.messages.Count(ctx, &interfaces.Query{
		Where: &interfaces.Filters{Conditions: []interfaces.Filter{
			{Field: "conversation_id", Value: conversationID},
			{Field: "sender_id", Operator: &interfaces.FilterOperator{Ne: viewerID}},
			{Field: "read", Value: false},
		}},
	})
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

// Send appends a message to a thread the caller participates in and
// bumps the thread so it sorts to the top of the inbox.
func (s *Service) Send(ctx context.Context, callerID, conversationID, content string) (*entities.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}
	if len([]rune(content)) > entities.MaxMessageLength {
		return nil, ErrMessageTooLong
	}

	conversation, err := s.load(ctx, conversationID, callerID)
	if err != nil {
		return nil, err
	}

	created, err := s.messages.Create(ctx, map[string]interface{}{
		"conversation_id": conversation.ID,
		"sender_id":       callerID,
		"content":         content,
		"read":            false,
	})
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	if _, err := s.conversations.Update(ctx, interfaces.StringID(conversation.ID), map[string]interface{}{}); err != nil && s.logger != nil {
		s.logger.Warnw("Conversation bump failed", "conversation_id", conversation.ID, "error", err)
	}

	if s.cache != nil {
		s.cache.PublishChange(ctx, store.ChangeEvent{
			Table:    entities.MessageSchema.TableName,
			Action:   store.ChangeInsert,
			RecordID: created["id"].(string),
		})
	}

	message := entities.MessageFromRecord(created)
	return &message, nil
}

// Messages returns the full thread history, oldest first.
func (s *Service) Messages(ctx context.Context, callerID, conversationID string) ([]entities.Message, error) {
	if _, err := s.load(ctx, conversationID, callerID); err != nil {
		return nil, err
	}

	page, err := s.messages.FindMany(ctx, &interfaces.Query{
		Where: &interfaces.Filters{Conditions: []interfaces.Filter{
			{Field: "conversation_id", Value: conversationID},
		}},
		OrderBy: []interfaces.OrderBy{{Field: "created_at", Direction: "asc"}},
	})
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	list := make([]entities.Message, 0, len(page.Data))
	for _, record := range page.Data {
		list = append(list, entities.MessageFromRecord(record))
	}
	return list, nil
}

// MarkRead marks every message the other participant sent as read, in
// one bulk update. Returns how many messages changed.
func (s *Service) MarkRead(ctx context.Context, callerID, conversationID string) (int64, error) {
	if _, err := s.load(ctx, conversationID, callerID); err != nil {
		return 0, err
	}

	changed, err := s.messages.UpdateMany(ctx, &interfaces.Filters{Conditions: []interfaces.Filter{
		{Field: "conversation_id", Value: conversationID},
		{Field: "sender_id", Operator: &interfaces.FilterOperator{Ne: callerID}},
		{Field: "read", Value: false},
	}}, map[string]interface{}{"read": true})
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	return changed, nil
}

// load fetches the conversation and rejects non-participants.
func (s *Service) load(ctx context.Context, conversationID, callerID string) (*entities.Conversation, error) {
	record, err := s.conversations.GetByID(ctx, interfaces.StringID(conversationID))
	if errors.Is(err, interfaces.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}

	conversation := entities.ConversationFromRecord(record)
	if conversation.AdopterID != callerID && conversation.PublisherID != callerID {
		return nil, ErrNotParticipant
	}
	return &conversation, nil
}
