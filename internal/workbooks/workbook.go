package workbooks

import (
	"encoding/json"
	"time"

	"github.com/angelmondragon/workbooks-backend/pkg/enums"
	"github.com/google/uuid"
)

// Owner is the authenticated principal a workbook belongs to.
type Owner struct {
	ID          string
	DisplayName string
}

// Workbook is the aggregate created by the create-workbook command.
// Timestamps are epoch milliseconds; zero means unset.
type Workbook struct {
	ID                  string         `json:"id" validate:"required"`
	OwnerID             string         `json:"ownerId" validate:"required"`
	OwnerDisplayName    string         `json:"ownerDisplayName" validate:"required"`
	Title               string         `json:"title" validate:"required"`
	Path                string         `json:"path" validate:"required"`
	IsFlagged           bool           `json:"isFlagged"`
	StartDate           int64          `json:"startDate" validate:"min=0"`
	TargetDate          int64          `json:"targetDate" validate:"min=0"`
	Priority            enums.Priority `json:"priority" validate:"priority"`
	PercentageCompleted int            `json:"percentageCompleted" validate:"min=0,max=100"`
	CreatedAt           int64          `json:"createdAt" validate:"gt=0"`
	UpdatedAt           int64          `json:"updatedAt" validate:"gt=0"`
}

// NewDefault builds a fresh workbook with a generated id and default values.
func NewDefault(title, path string, owner Owner) Workbook {
	return newDefaultAt(title, path, owner, time.Now())
}

func newDefaultAt(title, path string, owner Owner, now time.Time) Workbook {
	stamp := now.UnixMilli()
	return Workbook{
		ID:               uuid.NewString(),
		OwnerID:          owner.ID,
		OwnerDisplayName: owner.DisplayName,
		Title:            title,
		Path:             path,
		Priority:         enums.PriorityNone,
		CreatedAt:        stamp,
		UpdatedAt:        stamp,
	}
}

// Validate checks the workbook against the closed workbook schema.
func (w Workbook) Validate() ValidationResult {
	raw, err := json.Marshal(w)
	if err != nil {
		return invalidRoot("could not be encoded")
	}
	return ValidateDocument(raw)
}

// Decode reconstructs a workbook from its serialized form without applying defaults.
func Decode(raw []byte) (Workbook, error) {
	var w Workbook
	if err := json.Unmarshal(raw, &w); err != nil {
		return Workbook{}, err
	}
	return w, nil
}

// Public is the read-side projection with owner fields removed.
type Public struct {
	ID                  string         `json:"id"`
	Title               string         `json:"title"`
	Path                string         `json:"path"`
	IsFlagged           bool           `json:"isFlagged"`
	StartDate           int64          `json:"startDate"`
	TargetDate          int64          `json:"targetDate"`
	Priority            enums.Priority `json:"priority"`
	PercentageCompleted int            `json:"percentageCompleted"`
	CreatedAt           int64          `json:"createdAt"`
	UpdatedAt           int64          `json:"updatedAt"`
}

func (w Workbook) Public() Public {
	return Public{
		ID:                  w.ID,
		Title:               w.Title,
		Path:                w.Path,
		IsFlagged:           w.IsFlagged,
		StartDate:           w.StartDate,
		TargetDate:          w.TargetDate,
		Priority:            w.Priority,
		PercentageCompleted: w.PercentageCompleted,
		CreatedAt:           w.CreatedAt,
		UpdatedAt:           w.UpdatedAt,
	}
}
