package workbooks

import (
	"context"
	"errors"

	"github.com/angelmondragon/workbooks-backend/pkg/db"
	"github.com/angelmondragon/workbooks-backend/pkg/db/models"
	"gorm.io/gorm"
)

// ErrAlreadyExists reports a create against an occupied (ownerId, id) key.
var ErrAlreadyExists = errors.New("workbook already exists")

// Repository is the store port shared by every backend.
type Repository interface {
	// GetWorkbook returns nil without error when no record exists.
	GetWorkbook(ctx context.Context, ownerID, id string) (*Workbook, error)
	// CreateWorkbook fails with ErrAlreadyExists when the key is taken.
	CreateWorkbook(ctx context.Context, w Workbook) error
	ListByOwner(ctx context.Context, ownerID string) ([]Workbook, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a workbooks repository bound to the provided DB.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) GetWorkbook(ctx context.Context, ownerID, id string) (*Workbook, error) {
	var row models.Workbook
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, id).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	w := fromModel(row)
	return &w, nil
}

func (r *repository) CreateWorkbook(ctx context.Context, w Workbook) error {
	row := toModel(w)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *repository) ListByOwner(ctx context.Context, ownerID string) ([]Workbook, error) {
	var rows []models.Workbook
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Workbook, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromModel(row))
	}
	return out, nil
}

func toModel(w Workbook) models.Workbook {
	return models.Workbook{
		OwnerID:             w.OwnerID,
		ID:                  w.ID,
		OwnerDisplayName:    w.OwnerDisplayName,
		Title:               w.Title,
		Path:                w.Path,
		IsFlagged:           w.IsFlagged,
		StartDate:           w.StartDate,
		TargetDate:          w.TargetDate,
		Priority:            w.Priority,
		PercentageCompleted: w.PercentageCompleted,
		CreatedAtMillis:     w.CreatedAt,
		UpdatedAtMillis:     w.UpdatedAt,
	}
}

func fromModel(row models.Workbook) Workbook {
	return Workbook{
		ID:                  row.ID,
		OwnerID:             row.OwnerID,
		OwnerDisplayName:    row.OwnerDisplayName,
		Title:               row.Title,
		Path:                row.Path,
		IsFlagged:           row.IsFlagged,
		StartDate:           row.StartDate,
		TargetDate:          row.TargetDate,
		Priority:            row.Priority,
		PercentageCompleted: row.PercentageCompleted,
		CreatedAt:           row.CreatedAtMillis,
		UpdatedAt:           row.UpdatedAtMillis,
	}
}
