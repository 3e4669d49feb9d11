package entities

import (
	"time"

	"github.com/patitas/patitas-backend/internal/db/interfaces"
)

const (
	ReportStatusOpen      = "open"
	ReportStatusResolved  = "resolved"
	ReportStatusDismissed = "dismissed"
)

// Report flags an animal listing. At most one report exists per
// (animal, reporter) pair; the unique index backs up the pre-check.
type Report struct {
	ID         string    `json:"id"`
	AnimalID   string    `json:"animal_id"`
	ReporterID string    `json:"reporter_id"`
	Reason     string    `json:"reason"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

var ReportSchema = &interfaces.Schema{
	TableName: "reports",
	Fields: map[string]interfaces.FieldSchema{
		"id": {Type: "string", PrimaryKey: true},
		"animal_id": {Type: "string", ForeignKey: &interfaces.ForeignKey{
			Table:    "animals",
			Column:   "id",
			OnDelete: "CASCADE",
		}},
		"reporter_id": {Type: "string"},
		"reason":      {Type: "string"},
		"status":      {Type: "string", DefaultValue: ReportStatusOpen},
		"created_at":  {Type: "time"},
		"updated_at":  {Type: "time"},
	},
	Indexes: []interfaces.Index{
		{
			Name:    "uq_reports_target_reporter",
			Columns: []string{"animal_id", "reporter_id"},
			Unique:  true,
		},
		{Name: "idx_reports_status", Columns: []string{"status"}},
	},
}

func ReportFromRecord(record map[string]interface{}) Report {
	return Report{
		ID:         getString(record, "id"),
		AnimalID:   getString(record, "animal_id"),
		ReporterID: getString(record, "reporter_id"),
		Reason:     getString(record, "reason"),
		Status:     getString(record, "status"),
		CreatedAt:  getTime(record, "created_at"),
		UpdatedAt:  getTime(record, "updated_at"),
	}
}

// StoryReport flags an adoption story, same dedup contract as Report.
type StoryReport struct {
	ID         string    `json:"id"`
	StoryID    string    `json:"story_id"`
	ReporterID string    `json:"reporter_id"`
	Reason     string    `json:"reason"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

var StoryReportSchema = &interfaces.Schema{
	TableName: "story_reports",
	Fields: map[string]interfaces.FieldSchema{
		"id": {Type: "string", PrimaryKey: true},
		"story_id": {Type: "string", ForeignKey: &interfaces.ForeignKey{
			Table:    "adoption_stories",
			Column:   "id",
			OnDelete: "CASCADE",
		}},
		"reporter_id": {Type: "string"},
		"reason":      {Type: "string"},
		"status":      {Type: "string", DefaultValue: ReportStatusOpen},
		"created_at":  {Type: "time"},
		"updated_at":  {Type: "time"},
	},
	Indexes: []interfaces.Index{
		{
			Name:    "uq_story_reports_target_reporter",
			Columns: []string{"story_id", "reporter_id"},
			Unique:  true,
		},
	},
}

func StoryReportFromRecord(record map[string]interface{}) StoryReport {
	return StoryReport{
		ID:         getString(record, "id"),
		StoryID:    getString(record, "story_id"),
		ReporterID: getString(record, "reporter_id"),
		Reason:     getString(record, "reason"),
		Status:     getString(record, "status"),
		CreatedAt:  getTime(record, "created_at"),
		UpdatedAt:  getTime(record, "updated_at"),
	}
}
