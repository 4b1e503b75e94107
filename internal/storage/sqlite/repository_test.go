package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/kelnar/internal/domain"
	"github.com/vladislavdragonenkov/kelnar/internal/repository"
	"github.com/vladislavdragonenkov/kelnar/internal/storage/sqlite"
)

func TestDataRepository_ReloadsFromFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kelnar.db")
	logger := logrus.New().WithField("component", "test")

	store, err := sqlite.Open(ctx, path)
	require.NoError(t, err)
	repo := repository.New(store, logger)
	repo.LoadData(ctx)

	burger, ok := repo.GetProductByID("1")
	require.True(t, ok)
	order := domain.Order{
		ID:          "o-1",
		TableNumber: "7",
		Items:       []domain.OrderItem{domain.NewOrderItem("i-1", burger, 2, []string{"no onion"})},
		CreatedAt:   time.Date(2025, 5, 1, 12, 30, 0, 0, time.UTC),
	}
	require.NoError(t, repo.UpsertOrder(ctx, order))
	require.NoError(t, store.Close())

	reopened := openStore(t, path)
	again := repository.New(reopened, logger)
	again.LoadData(ctx)

	require.Len(t, again.Products(), 5)
	loaded, ok := again.GetOrderByID("o-1")
	require.True(t, ok)
	require.Equal(t, 25.98, loaded.Total())
	require.True(t, order.CreatedAt.Equal(loaded.CreatedAt))
	require.Equal(t, []string{"no onion"}, loaded.Items[0].Customizations)
}
