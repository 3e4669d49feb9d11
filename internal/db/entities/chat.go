package entities

import (
	"time"

	"github.com/patitas/patitas-backend/internal/db/interfaces"
)

// Conversation is a 1:1 thread scoped to exactly one animal and two
// participants. The unique index is the safety net behind the
// pre-insert existence check; a racing duplicate insert surfaces as
// ErrUniqueConstraint and is translated upstream.
type Conversation struct {
	ID          string    `json:"id"`
	AnimalID    string    `json:"animal_id"`
	AdopterID   string    `json:"adopter_id"`
	PublisherID string    `json:"publisher_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

var ConversationSchema = &interfaces.Schema{
	TableName: "conversations",
	Fields: map[string]interfaces.FieldSchema{
		"id": {Type: "string", PrimaryKey: true},
		"animal_id": {Type: "string", ForeignKey: &interfaces.ForeignKey{
			Table:    "animals",
			Column:   "id",
			OnDelete: "CASCADE",
		}},
		"adopter_id":   {Type: "string"},
		"publisher_id": {Type: "string"},
		"created_at":   {Type: "time"},
		"updated_at":   {Type: "time"},
	},
	Indexes: []interfaces.Index{
		{
			Name:    "uq_conversations_participants",
			Columns: []string{"animal_id", "adopter_id", "publisher_id"},
			Unique:  true,
		},
		{Name: "idx_conversations_adopter", Columns: []string{"adopter_id"}},
		{Name: "idx_conversations_publisher", Columns: []string{"publisher_id"}},
	},
}

func ConversationFromRecord(record map[string]interface{}) Conversation {
	return Conversation{
		ID:          getString(record, "id"),
		AnimalID:    getString(record, "animal_id"),
		AdopterID:   getString(record, "adopter_id"),
		PublisherID: getString(record, "publisher_id"),
		CreatedAt:   getTime(record, "created_at"),
		UpdatedAt:   getTime(record, "updated_at"),
	}
}

// MaxMessageLength bounds message content.
const MaxMessageLength = 1000

type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Content        string    `json:"content"`
	Read           bool      `json:"read"`
	CreatedAt      time.Time `json:"created_at"`
}

var MessageSchema = &interfaces.Schema{
	TableName: "messages",
	Fields: map[string]interfaces.FieldSchema{
		"id": {Type: "string", PrimaryKey: true},
		"conversation_id": {Type: "string", ForeignKey: &interfaces.ForeignKey{
			Table:    "conversations",
			Column:   "id",
			OnDelete: "CASCADE",
		}},
		"sender_id":  {Type: "string"},
		"content":    {Type: "string"},
		"read":       {Type: "bool", DefaultValue: false},
		"created_at": {Type: "time"},
		"updated_at": {Type: "time"},
	},
	Indexes: []interfaces.Index{
		{Name: "idx_messages_conversation", Columns: []string{"conversation_id"}},
	},
}

func MessageFromRecord(record map[string]interface{}) Message {
	return Message{
		ID:             getString(record, "id"),
		ConversationID: getString(record, "conversation_id"),
		SenderID:       getString(record, "sender_id"),
		Content:        getString(record, "content"),
		Read:           getBool(record, "read"),
		CreatedAt:      getTime(record, "created_at"),
	}
}
