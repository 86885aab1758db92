package main

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"

	"github.com/angelmondragon/workbooks-backend/internal/workbooks"
	"github.com/angelmondragon/workbooks-backend/pkg/db"
	"github.com/angelmondragon/workbooks-backend/pkg/db/models"
)

func TestSeedCreatesWorkbooksPerOwner(t *testing.T) {
	conn, err := db.Open(sqlite.Open("file:seed?mode=memory&cache=shared"))
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Workbook{}))
	repo := workbooks.NewRepository(conn)
	ctx := context.Background()

	created, err := seed(ctx, repo, []string{"alice", "bob"}, 3, rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)
	assert.Equal(t, 6, created)

	for _, owner := range []string{"alice", "bob"} {
		rows, err := repo.ListByOwner(ctx, owner)
		require.NoError(t, err)
		require.Len(t, rows, 3)
		for _, w := range rows {
			assert.True(t, w.Priority.IsValid())
			assert.LessOrEqual(t, w.PercentageCompleted, 100)
			assert.Greater(t, w.TargetDate, w.StartDate)
		}
	}
}

func TestSplitOwners(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitOwners(" a, ,b ,"))
	assert.Nil(t, splitOwners(""))
}
