package entities

import (
	"time"

	"github.com/patitas/patitas-backend/internal/db/interfaces"
)

// Species, status, and sex values are stored in Spanish because that is
// what the client renders and filters against.
const (
	SpeciesDog   = "perro"
	SpeciesCat   = "gato"
	SpeciesOther = "otro"

	StatusAvailable = "disponible"
	StatusAdopted   = "adoptado"
	StatusLost      = "perdido"
	StatusStory     = "historia"

	SexMale    = "macho"
	SexFemale  = "hembra"
	SexUnknown = "desconocido"

	// UnknownName is the placeholder stored when the publisher marks the
	// animal's name as unknown.
	UnknownName = "Sin nombre"
)

// Animal represents a single animal listing. Adoption listings and lost
// reports share this shape; coordinates are only present for lost
// reports so the map can place a pin.
type Animal struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Species     string    `json:"species"`
	Status      string    `json:"status"`
	Sex         string    `json:"sex"`
	Age         string    `json:"age"`
	Size        string    `json:"size"`
	Description string    `json:"description"`
	Personality *string   `json:"personality,omitempty"`
	HealthInfo  *string   `json:"health_info,omitempty"`
	Location    string    `json:"location"`
	Province    *string   `json:"province,omitempty"`
	Country     *string   `json:"country,omitempty"`
	Latitude    *float64  `json:"latitude,omitempty"`
	Longitude   *float64  `json:"longitude,omitempty"`
	ImageURL    string    `json:"image_url"`
	UserID      string    `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HasCoordinates reports whether the record carries a map position.
func (a *Animal) HasCoordinates() bool {
	return a.Latitude != nil && a.Longitude != nil
}

var AnimalSchema = &interfaces.Schema{
	TableName: "animals",
	Fields: map[string]interfaces.FieldSchema{
		"id":          {Type: "string", PrimaryKey: true},
		"name":        {Type: "string"},
		"species":     {Type: "string"},
		"status":      {Type: "string"},
		"sex":         {Type: "string", DefaultValue: SexUnknown},
		"age":         {Type: "string"},
		"size":        {Type: "string"},
		"description": {Type: "string"},
		"personality": {Type: "string", Nullable: true},
		"health_info": {Type: "string", Nullable: true},
		"location":    {Type: "string"},
		"province":    {Type: "string", Nullable: true},
		"country":     {Type: "string", Nullable: true},
		"latitude":    {Type: "float64", Nullable: true},
		"longitude":   {Type: "float64", Nullable: true},
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
		{Name: "idx_animals_status", Columns: []string{"status"}},
		{Name: "idx_animals_user", Columns: []string{"user_id"}},
		{Name: "idx_animals_created", Columns: []string{"created_at"}},
	},
}

// AnimalFromRecord decodes a backend row into an Animal.
func AnimalFromRecord(record map[string]interface{}) Animal {
	return Animal{
		ID:          getString(record, "id"),
		Name:        getString(record, "name"),
		Species:     getString(record, "species"),
		Status:      getString(record, "status"),
		Sex:         getString(record, "sex"),
		Age:         getString(record, "age"),
		Size:        getString(record, "size"),
		Description: getString(record, "description"),
		Personality: getStringPtr(record, "personality"),
		HealthInfo:  getStringPtr(record, "health_info"),
		Location:    getString(record, "location"),
		Province:    getStringPtr(record, "province"),
		Country:     getStringPtr(record, "country"),
		Latitude:    getFloatPtr(record, "latitude"),
		Longitude:   getFloatPtr(record, "longitude"),
		ImageURL:    getString(record, "image_url"),
		UserID:      getString(record, "user_id"),
		CreatedAt:   getTime(record, "created_at"),
		UpdatedAt:   getTime(record, "updated_at"),
	}
}

// AnimalImage is a gallery image owned 1:N by an animal. DisplayOrder is
// a sort key, not a contiguous index; gaps are tolerated.
type AnimalImage struct {
	ID           string    `json:"id"`
	AnimalID     string    `json:"animal_id"`
	ImageURL     string    `json:"image_url"`
	DisplayOrder int       `json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
}

var AnimalImageSchema = &interfaces.Schema{
	TableName: "animal_images",
	Fields: map[string]interfaces.FieldSchema{
		"id": {Type: "string", PrimaryKey: true},
		"animal_id": {Type: "string", ForeignKey: &interfaces.ForeignKey{
			Table:    "animals",
			Column:   "id",
			OnDelete: "CASCADE",
		}},
		"image_url":     {Type: "string"},
		"display_order": {Type: "int"},
		"created_at":    {Type: "time"},
		"updated_at":    {Type: "time"},
	},
	Indexes: []interfaces.Index{
		{Name: "idx_animal_images_animal", Columns: []string{"animal_id"}},
	},
}

func AnimalImageFromRecord(record map[string]interface{}) AnimalImage {
	return AnimalImage{
		ID:           getString(record, "id"),
		AnimalID:     getString(record, "animal_id"),
		ImageURL:     getString(record, "image_url"),
		DisplayOrder: getInt(record, "display_order"),
		CreatedAt:    getTime(record, "created_at"),
	}
}
