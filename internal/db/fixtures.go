package db

import (
	"context"

	"github.com/patitas/patitas-backend/internal/db/entities"
	"github.com/patitas/patitas-backend/internal/db/interfaces"
)

// SeedDevData loads a couple of profiles and listings so a dev instance
// has something to render. Never called in prod.
func SeedDevData(ctx context.Context, database interfaces.Database) error {
	profiles := []map[string]interface{}{
		{
			"id":           "11111111-1111-1111-1111-111111111111",
			"display_name": "María Pérez",
			"role":         entities.RoleUser,
			"banned":       false,
		},
		{
			"id":           "22222222-2222-2222-2222-222222222222",
			"display_name": "Refugio Esperanza",
			"role":         entities.RoleModerator,
			"banned":       false,
		},
	}
	if err := database.Seed(ctx, entities.ProfileSchema, profiles); err != nil {
		return err
	}

	lat := -31.5375
	lng := -68.5364
	animals := []map[string]interface{}{
		{
			"name":        "Luna",
			"species":     entities.SpeciesDog,
			"status":      entities.StatusAvailable,
			"sex":         entities.SexFemale,
			"age":         "3 años",
			"size":        "mediano",
			"description": "Muy cariñosa, busca familia.",
			"location":    "Rivadavia, San Juan",
			"province":    "San Juan",
			"image_url":   "https://example.com/images/luna.jpg",
			"user_id":     "11111111-1111-1111-1111-111111111111",
		},
		{
			"name":        "Toby",
			"species":     entities.SpeciesDog,
			"status":      entities.StatusLost,
			"sex":         entities.SexMale,
			"age":         "2 años",
			"size":        "mediano",
			"description": "Se perdió cerca de la plaza.",
			"location":    "Capital, San Juan",
			"province":    "San Juan",
			"latitude":    lat,
			"longitude":   lng,
			"image_url":   "https://example.com/images/toby.jpg",
			"user_id":     "11111111-1111-1111-1111-111111111111",
		},
	}
	return database.Seed(ctx, entities.AnimalSchema, animals)
}
