package entities

import (
	"time"

	"github.com/patitas/patitas-backend/internal/db/interfaces"
)

// AdoptionStory is a narrative published by an adopter. The animal_id
// field is legacy: stories live independently of any animal record's
// lifecycle, so it is nullable and not a foreign key.
type AdoptionStory struct {
	ID         string    `json:"id"`
	AnimalID   *string   `json:"animal_id,omitempty"`
	AnimalName string    `json:"animal_name"`
	Story      string    `json:"story"`
	ImageURL   string    `json:"image_url"`
	UserID     string    `json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

var AdoptionStorySchema = &interfaces.Schema{
	TableName: "adoption_stories",
	Fields: map[string]interfaces.FieldSchema{
		"id":          {Type: "string", PrimaryKey: true},
		"animal_id":   {Type: "string", Nullable: true},
		"animal_name": {Type: "string"},
		"story":       {Type: "string"},
		"image_url":   {Type: "string"},
		"user_id": {Type: "string", ForeignKey: &interfaces.ForeignKey{
			Table:    "profiles",
			Column:   "id",
			OnDelete: "CASCADE",
		}},
		"created_at": {Type: "time"},
		"updated_at": {Type: "time"},
	},
	Indexes: []interfaces.Index{
		{Name: "idx_stories_user", Columns: []string{"user_id"}},
	},
}

func AdoptionStoryFromRecord(record map[string]interface{}) AdoptionStory {
	return AdoptionStory{
		ID:         getString(record, "id"),
		AnimalID:   getStringPtr(record, "animal_id"),
		AnimalName: getString(record, "animal_name"),
		Story:      getString(record, "story"),
		ImageURL:   getString(record, "image_url"),
		UserID:     getString(record, "user_id"),
		CreatedAt:  getTime(record, "created_at"),
		UpdatedAt:  getTime(record, "updated_at"),
	}
}
