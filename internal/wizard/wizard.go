package wizard

import (
	"errors"

	"github.com/patitas/patitas-backend/internal/db/entities"
	"github.com/patitas/patitas-backend/internal/media"
)

// PubType selects what kind of record the wizard publishes.
type PubType string

const (
	TypeAdoption PubType = "adopcion"
	TypeLost     PubType = "perdido"
	TypeStory    PubType = "historia"
)

// Status maps the publication type to the stored record status.
func (t PubType) Status() string {
	switch t {
	case TypeAdoption:
		return entities.StatusAvailable
	case TypeLost:
		return entities.StatusLost
	case TypeStory:
		return entities.StatusStory
	}
	return ""
}

func (t PubType) Valid() bool {
	return t.Status() != ""
}

// Step is a wizard screen.
type Step int

const (
	StepSelectType Step = iota
	StepContextualDetails
	StepCommonDetails
)

var (
	ErrNoType           = errors.New("publication type not selected")
	ErrTypeLocked       = errors.New("type cannot change after the first step")
	ErrStepIncomplete   = errors.New("current step is incomplete")
	ErrAlreadyFirstStep = errors.New("already at the first step")
)

// Draft accumulates everything the three steps collect.
type Draft struct {
	Type PubType `json:"type"`

	// Contextual details. Which fields apply depends on Type.
	Province   string   `json:"province"`
	Area       string   `json:"area,omitempty"`       // adoption
	Provenance string   `json:"provenance,omitempty"` // adoption: particular / refugio
	Latitude   *float64 `json:"latitude,omitempty"`   // lost
	Longitude  *float64 `json:"longitude,omitempty"`  // lost
	Reference  string   `json:"reference,omitempty"`  // lost: where last seen
	Title      string   `json:"title,omitempty"`      // story

	// Common details.
	Name           string        `json:"name"`
	NameUnknown    bool          `json:"name_unknown"`
	Species        string        `json:"species"`
	Sex            string        `json:"sex"`
	Age            string        `json:"age"`
	AgeApproximate bool          `json:"age_approximate"`
	Size           string        `json:"size"`
	Description    string        `json:"description"`
	Personality    string        `json:"personality,omitempty"`
	HealthInfo     string        `json:"health_info,omitempty"`
	AntiSaleAck    bool          `json:"anti_sale_ack"` // adoption only
	Images         []media.Image `json:"-"`
}

// Wizard is the step machine of one publication flow. Forward moves
// validate the step being left; back moves never lose entered data
// except the type-dependent contextual fields when the type changes.
type Wizard struct {
	step  Step
	draft Draft
}

func New() *Wizard {
	return &Wizard{step: StepSelectType}
}

func (w *Wizard) Step() Step   { return w.step }
func (w *Wizard) Draft() Draft { return w.draft }

// SelectType sets the publication type. Allowed only on the first step;
// changing the type discards previously entered contextual details.
func (w *Wizard) SelectType(t PubType) error {
	if w.step != StepSelectType {
		return ErrTypeLocked
	}
	if !t.Valid() {
		return ErrNoType
	}
	if w.draft.Type != t {
		w.draft.Province = ""
		w.draft.Area = ""
		w.draft.Provenance = ""
		w.draft.Latitude = nil
		w.draft.Longitude = nil
		w.draft.Reference = ""
		w.draft.Title = ""
	}
	w.draft.Type = t
	return nil
}

// SetContextual stores the type-specific fields gathered on step two.
func (w *Wizard) SetContextual(draft Draft) error {
	if w.step != StepContextualDetails {
		return ErrStepIncomplete
	}
	w.draft.Province = draft.Province
	w.draft.Area = draft.Area
	w.draft.Provenance = draft.Provenance
	w.draft.Latitude = draft.Latitude
	w.draft.Longitude = draft.Longitude
	w.draft.Reference = draft.Reference
	w.draft.Title = draft.Title
	return nil
}

// SetCommon stores the shared fields gathered on the final step.
func (w *Wizard) SetCommon(draft Draft) error {
	if w.step != StepCommonDetails {
		return ErrStepIncomplete
	}
	w.draft.Name = draft.Name
	w.draft.NameUnknown = draft.NameUnknown
	w.draft.Species = draft.Species
	w.draft.Sex = draft.Sex
	w.draft.Age = draft.Age
	w.draft.AgeApproximate = draft.AgeApproximate
	w.draft.Size = draft.Size
	w.draft.Description = draft.Description
	w.draft.Personality = draft.Personality
	w.draft.HealthInfo = draft.HealthInfo
	w.draft.AntiSaleAck = draft.AntiSaleAck
	w.draft.Images = draft.Images
	return nil
}

// Next advances one step after validating the step being left. Forward
// jumps are impossible; there is no way to reach CommonDetails without
// a complete contextual step.
func (w *Wizard) Next() error {
	switch w.step {
	case StepSelectType:
		if !w.draft.Type.Valid() {
			return ErrNoType
		}
		w.step = StepContextualDetails
	case StepContextualDetails:
		if !w.contextualComplete() {
			return ErrStepIncomplete
		}
		w.step = StepCommonDetails
	case StepCommonDetails:
		return ErrStepIncomplete
	}
	return nil
}

// Back returns to the previous step without validation.
func (w *Wizard) Back() error {
	if w.step == StepSelectType {
		return ErrAlreadyFirstStep
	}
	w.step--
	return nil
}

func (w *Wizard) contextualComplete() bool {
	if w.draft.Province == "" {
		return false
	}
	switch w.draft.Type {
	case TypeAdoption:
		return w.draft.Provenance != ""
	case TypeLost:
		return w.draft.Latitude != nil && w.draft.Longitude != nil
	case TypeStory:
		return w.draft.Title != ""
	}
	return false
}
