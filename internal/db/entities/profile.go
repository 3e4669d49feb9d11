package entities

import (
	"time"

	"github.com/patitas/patitas-backend/internal/db/interfaces"
)

const (
	RoleUser      = "user"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// Profile holds the platform-side user state. Identity itself lives in
// the external auth provider; this row only carries what content
// operations need: role for moderation gating and the banned flag.
type Profile struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	Banned      bool      `json:"banned"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (p *Profile) IsModerator() bool {
	return p.Role == RoleModerator || p.Role == RoleAdmin
}

var ProfileSchema = &interfaces.Schema{
	TableName: "profiles",
	Fields: map[string]interfaces.FieldSchema{
		"id":           {Type: "string", PrimaryKey: true},
		"display_name": {Type: "string"},
		"role":         {Type: "string", DefaultValue: RoleUser},
		"banned":       {Type: "bool", DefaultValue: false},
		"created_at":   {Type: "time"},
		"updated_at":   {Type: "time"},
	},
}

func ProfileFromRecord(record map[string]interface{}) Profile {
	return Profile{
		ID:          getString(record, "id"),
		DisplayName: getString(record, "display_name"),
		Role:        getString(record, "role"),
		Banned:      getBool(record, "banned"),
		CreatedAt:   getTime(record, "created_at"),
		UpdatedAt:   getTime(record, "updated_at"),
	}
}
