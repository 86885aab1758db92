package workbooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/angelmondragon/workbooks-backend/pkg/enums"
)

type tableClient interface {
	GetEntity(ctx context.Context, partitionKey, rowKey string, options *aztables.GetEntityOptions) (aztables.GetEntityResponse, error)
	AddEntity(ctx context.Context, entity []byte, options *aztables.AddEntityOptions) (aztables.AddEntityResponse, error)
	NewListEntitiesPager(options *aztables.ListEntitiesOptions) *runtime.Pager[aztables.ListEntitiesResponse]
}

// tableRepository stores workbooks with PartitionKey=ownerId and RowKey=id.
type tableRepository struct {
	table tableClient
}

// NewTableRepository builds a repository over an Azure Tables client.
func NewTableRepository(table *aztables.Client) Repository {
	return &tableRepository{table: table}
}

func (r *tableRepository) GetWorkbook(ctx context.Context, ownerID, id string) (*Workbook, error) {
	resp, err := r.table.GetEntity(ctx, ownerID, id, nil)
	if err != nil {
		if statusCode(err) == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	w, err := decodeEntity(resp.Value)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *tableRepository) CreateWorkbook(ctx context.Context, w Workbook) error {
	payload, err := json.Marshal(toEntity(w))
	if err != nil {
		return fmt.Errorf("encode workbook entity: %w", err)
	}
	if _, err := r.table.AddEntity(ctx, payload, nil); err != nil {
		if statusCode(err) == http.StatusConflict {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *tableRepository) ListByOwner(ctx context.Context, ownerID string) ([]Workbook, error) {
	filter := fmt.Sprintf("PartitionKey eq '%s'", strings.ReplaceAll(ownerID, "'", "''"))
	pager := r.table.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	out := []Workbook{}
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range page.Entities {
			w, err := decodeEntity(raw)
			if err != nil {
				return nil, err
			}
			out = append(out, w)
		}
	}
	return out, nil
}

func statusCode(err error) int {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode
	}
	return 0
}

func toEntity(w Workbook) aztables.EDMEntity {
	return aztables.EDMEntity{
		Entity: aztables.Entity{PartitionKey: w.OwnerID, RowKey: w.ID},
		Properties: map[string]any{
			"OwnerDisplayName":    w.OwnerDisplayName,
			"Title":               w.Title,
			"Path":                w.Path,
			"IsFlagged":           w.IsFlagged,
			"StartDate":           aztables.EDMInt64(w.StartDate),
			"TargetDate":          aztables.EDMInt64(w.TargetDate),
			"Priority":            string(w.Priority),
			"PercentageCompleted": int32(w.PercentageCompleted),
			"CreatedAt":           aztables.EDMInt64(w.CreatedAt),
			"UpdatedAt":           aztables.EDMInt64(w.UpdatedAt),
		},
	}
}

func decodeEntity(raw []byte) (Workbook, error) {
	var ent aztables.EDMEntity
	if err := json.Unmarshal(raw, &ent); err != nil {
		return Workbook{}, fmt.Errorf("decode workbook entity: %w", err)
	}
	props := ent.Properties
	return Workbook{
		ID:                  ent.RowKey,
		OwnerID:             ent.PartitionKey,
		OwnerDisplayName:    stringProperty(props["OwnerDisplayName"]),
		Title:               stringProperty(props["Title"]),
		Path:                stringProperty(props["Path"]),
		IsFlagged:           boolProperty(props["IsFlagged"]),
		StartDate:           int64Property(props["StartDate"]),
		TargetDate:          int64Property(props["TargetDate"]),
		Priority:            enums.Priority(stringProperty(props["Priority"])),
		PercentageCompleted: int(int64Property(props["PercentageCompleted"])),
		CreatedAt:           int64Property(props["CreatedAt"]),
		UpdatedAt:           int64Property(props["UpdatedAt"]),
	}, nil
}

func stringProperty(v any) string {
	s, _ := v.(string)
	return s
}

func boolProperty(v any) bool {
	b, _ := v.(bool)
	return b
}

func int64Property(v any) int64 {
	switch n := v.(type) {
	case aztables.EDMInt64:
		return int64(n)
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case string:
		var parsed int64
		if _, err := fmt.Sscan(n, &parsed); err == nil {
			return parsed
		}
	}
	return 0
}
