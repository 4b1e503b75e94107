package repository_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/kelnar/internal/domain"
	"github.com/vladislavdragonenkov/kelnar/internal/repository"
	"github.com/vladislavdragonenkov/kelnar/internal/storage/memory"
)

func loggerForTests() *logrus.Entry {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	logger.SetLevel(logrus.DebugLevel)
	return logger.WithField("component", "test")
}

func newOrder(id string, items ...domain.OrderItem) domain.Order {
	if len(items) == 0 {
		items = []domain.OrderItem{
			domain.NewOrderItem(id+"-item", domain.Product{ID: "1", Name: "Burger", Price: 12.99}, 1, nil),
		}
	}
	return domain.Order{
		ID:          id,
		TableNumber: "5",
		Items:       items,
		CreatedAt:   time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func storedJSON[T any](t *testing.T, store domain.KeyValueStore, key string) T {
	t.Helper()
	raw, ok, err := store.GetString(context.Background(), key)
	require.NoError(t, err)
	require.True(t, ok, "key %s must be persisted", key)

	var out T
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

// failingStore отвечает ошибкой на все операции.
type failingStore struct{}

var errDiskFull = errors.New("disk full")

func (failingStore) GetString(context.Context, string) (string, bool, error) {
	return "", false, errDiskFull
}
func (failingStore) PutString(context.Context, string, string) error { return errDiskFull }
func (failingStore) Remove(context.Context, string) error            { return errDiskFull }
func (failingStore) Clear(context.Context) error                     { return errDiskFull }
func (failingStore) Ping(context.Context) error                      { return errDiskFull }

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.ChangeEvent
	err    error
}

func (p *recordingPublisher) Publish(event domain.ChangeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func TestLoadData_MissingProductsSeedsAndPersists(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKeyValueStore()
	repo := repository.New(store, loggerForTests())

	repo.LoadData(ctx)

	require.Equal(t, domain.DefaultProducts(), repo.Products())
	require.Empty(t, repo.Orders())
	require.Equal(t, domain.DefaultProducts(), storedJSON[[]domain.Product](t, store, domain.ProductsKey))

	// Отсутствующие заказы не материализуются в хранилище.
	_, ok, err := store.GetString(ctx, domain.OrdersKey)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLoadData_CorruptOrdersBecomeEmpty(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKeyValueStoreWith(map[string]string{
		domain.ProductsKey: `[{"id":"9","name":"Soup","price":3.5}]`,
		domain.OrdersKey:   `[{"id": "broken"`,
	})
	repo := repository.New(store, loggerForTests())

	repo.LoadData(ctx)

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	orders := <-repo.SubscribeOrders(subCtx)
	require.NotNil(t, orders)
	require.Empty(t, orders)

	products := repo.Products()
	require.Len(t, products, 1)
	require.Equal(t, "Soup", products[0].Name)
	require.Equal(t, "", products[0].Description)
}

func TestLoadData_CorruptProductsFallBackToSeed(t *testing.T) {
	store := memory.NewKeyValueStoreWith(map[string]string{domain.ProductsKey: "not json"})
	seed := []domain.Product{{ID: "s1", Name: "Tea", Price: 1.2}}
	repo := repository.New(store, loggerForTests(), repository.WithSeedProducts(seed))

	repo.LoadData(context.Background())

	require.Equal(t, seed, repo.Products())
	require.Equal(t, seed, storedJSON[[]domain.Product](t, store, domain.ProductsKey))
}

func TestLoadData_EmptySeed(t *testing.T) {
	store := memory.NewKeyValueStore()
	repo := repository.New(store, loggerForTests(), repository.WithSeedProducts(nil))

	repo.LoadData(context.Background())

	require.Empty(t, repo.Products())
	require.Empty(t, storedJSON[[]domain.Product](t, store, domain.ProductsKey))
}

func TestLoadData_IgnoresUnknownFields(t *testing.T) {
	store := memory.NewKeyValueStoreWith(map[string]string{
		domain.ProductsKey: `[{"id":"1","name":"Burger","price":12.99,"category":"mains"}]`,
		domain.OrdersKey:   `[{"id":"o1","tableNumber":"3","items":[],"createdAt":"2024-05-01T12:30:00","isCompleted":true,"tip":2}]`,
	})
	repo := repository.New(store, loggerForTests())

	repo.LoadData(context.Background())

	require.Len(t, repo.Products(), 1)
	order, ok := repo.GetOrderByID("o1")
	require.True(t, ok)
	require.True(t, order.IsCompleted)
}

func TestLoadData_StoreErrorsDoNotFail(t *testing.T) {
	repo := repository.New(failingStore{}, loggerForTests())

	repo.LoadData(context.Background())

	require.Equal(t, domain.DefaultProducts(), repo.Products())
	require.Empty(t, repo.Orders())

	// Ошибки записи тоже гасятся: состояние в памяти обновляется.
	require.NoError(t, repo.UpsertProduct(context.Background(), domain.Product{ID: "x", Name: "X", Price: 1}))
	_, ok := repo.GetProductByID("x")
	require.True(t, ok)
}

func TestUpsertProduct_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKeyValueStore()
	repo := repository.New(store, loggerForTests(), repository.WithSeedProducts(nil))
	repo.LoadData(ctx)

	p := domain.Product{ID: "p1", Name: "Burger", Price: 12.99, Description: "beef"}
	require.NoError(t, repo.UpsertProduct(ctx, p))
	first := repo.Products()
	require.NoError(t, repo.UpsertProduct(ctx, p))

	require.Equal(t, first, repo.Products())
	require.Len(t, repo.Products(), 1)
}

func TestUpsertProduct_ReplacesInPlace(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKeyValueStore()
	repo := repository.New(store, loggerForTests())
	repo.LoadData(ctx)

	require.NoError(t, repo.UpsertProduct(ctx, domain.Product{ID: "2", Name: "Chili Dog", Price: 9}))
	require.NoError(t, repo.UpsertProduct(ctx, domain.Product{ID: "new", Name: "Salad", Price: 6}))

	products := repo.Products()
	require.Len(t, products, 6)
	require.Equal(t, "Chili Dog", products[1].Name)
	require.Equal(t, "Salad", products[5].Name)
	require.Equal(t, products, storedJSON[[]domain.Product](t, store, domain.ProductsKey))
}

func TestUpsertProduct_Validation(t *testing.T) {
	repo := repository.New(memory.NewKeyValueStore(), loggerForTests())
	err := repo.UpsertProduct(context.Background(), domain.Product{ID: "1", Name: ""})
	require.ErrorIs(t, err, domain.ErrProductNameRequired)
}

func TestRemoveAndClearProducts(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKeyValueStore()
	repo := repository.New(store, loggerForTests())
	repo.LoadData(ctx)

	require.NoError(t, repo.RemoveProduct(ctx, "3"))
	require.NoError(t, repo.RemoveProduct(ctx, "missing"))
	_, ok := repo.GetProductByID("3")
	require.False(t, ok)
	require.Len(t, storedJSON[[]domain.Product](t, store, domain.ProductsKey), 4)

	require.NoError(t, repo.ClearAllProducts(ctx))
	require.Empty(t, repo.Products())
	require.Empty(t, storedJSON[[]domain.Product](t, store, domain.ProductsKey))
}

func TestUpsertOrder_NewOrdersArePrepended(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKeyValueStore()
	repo := repository.New(store, loggerForTests())
	repo.LoadData(ctx)

	require.NoError(t, repo.UpsertOrder(ctx, newOrder("A")))
	require.NoError(t, repo.UpsertOrder(ctx, newOrder("B")))

	orders := repo.Orders()
	require.Len(t, orders, 2)
	require.Equal(t, "B", orders[0].ID)
	require.Equal(t, "A", orders[1].ID)

	// Обновление существующего заказа не меняет его позицию.
	updated := newOrder("A")
	updated.IsCompleted = true
	require.NoError(t, repo.UpsertOrder(ctx, updated))

	orders = repo.Orders()
	require.Equal(t, "B", orders[0].ID)
	require.Equal(t, "A", orders[1].ID)
	require.True(t, orders[1].IsCompleted)

	persisted := storedJSON[[]domain.Order](t, store, domain.OrdersKey)
	require.Len(t, persisted, 2)
	require.Equal(t, "B", persisted[0].ID)
	require.True(t, persisted[1].IsCompleted)
}

func TestUpdateOrder_RequiresExisting(t *testing.T) {
	ctx := context.Background()
	repo := repository.New(memory.NewKeyValueStore(), loggerForTests())
	repo.LoadData(ctx)

	err := repo.UpdateOrder(ctx, newOrder("ghost"))
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
	require.Empty(t, repo.Orders())
}

func TestRemoveOrder(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKeyValueStore()
	repo := repository.New(store, loggerForTests())
	repo.LoadData(ctx)

	require.NoError(t, repo.UpsertOrder(ctx, newOrder("A")))
	require.NoError(t, repo.UpsertOrder(ctx, newOrder("B")))
	require.NoError(t, repo.RemoveOrder(ctx, "A"))

	_, ok := repo.GetOrderByID("A")
	require.False(t, ok)
	persisted := storedJSON[[]domain.Order](t, store, domain.OrdersKey)
	require.Len(t, persisted, 1)
	require.Equal(t, "B", persisted[0].ID)
}

func TestOrderItemsKeepProductSnapshot(t *testing.T) {
	ctx := context.Background()
	repo := repository.New(memory.NewKeyValueStore(), loggerForTests())
	repo.LoadData(ctx)

	burger, ok := repo.GetProductByID("1")
	require.True(t, ok)
	item := domain.NewOrderItem("i1", burger, 2, nil)
	require.NoError(t, repo.UpsertOrder(ctx, newOrder("A", item)))

	burger.Price = 20
	require.NoError(t, repo.UpsertProduct(ctx, burger))

	order, ok := repo.GetOrderByID("A")
	require.True(t, ok)
	require.Equal(t, 12.99, order.Items[0].Product.Price)
	require.Equal(t, 25.98, order.Total())
}

func TestReturnedValuesAreCopies(t *testing.T) {
	ctx := context.Background()
	repo := repository.New(memory.NewKeyValueStore(), loggerForTests())
	repo.LoadData(ctx)
	require.NoError(t, repo.UpsertOrder(ctx, newOrder("A")))

	orders := repo.Orders()
	orders[0].Items[0].Quantity = 99
	products := repo.Products()
	products[0].Name = "changed"

	order, _ := repo.GetOrderByID("A")
	require.Equal(t, 1, order.Items[0].Quantity)
	require.Equal(t, "Burger", repo.Products()[0].Name)
}

func TestSubscribeProducts_ReplaysLatest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := repository.New(memory.NewKeyValueStore(), loggerForTests(), repository.WithSeedProducts(nil))
	repo.LoadData(ctx)
	require.NoError(t, repo.UpsertProduct(ctx, domain.Product{ID: "a", Name: "A", Price: 1}))

	updates := repo.SubscribeProducts(ctx)
	first := <-updates
	require.Len(t, first, 1)

	require.NoError(t, repo.UpsertProduct(ctx, domain.Product{ID: "b", Name: "B", Price: 2}))
	second := <-updates
	require.Len(t, second, 2)
}

func TestWithProductsKey(t *testing.T) {
	store := memory.NewKeyValueStore()
	repo := repository.New(store, loggerForTests(), repository.WithProductsKey("menu"))
	repo.LoadData(context.Background())

	require.Len(t, storedJSON[[]domain.Product](t, store, "menu"), 5)
	_, ok, _ := store.GetString(context.Background(), domain.ProductsKey)
	require.False(t, ok)
}

func TestPublisherReceivesEvents(t *testing.T) {
	ctx := context.Background()
	publisher := &recordingPublisher{err: errors.New("broker down")}
	fixed := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	repo := repository.New(memory.NewKeyValueStore(), loggerForTests(),
		repository.WithPublisher(publisher),
		repository.WithClock(func() time.Time { return fixed }),
	)
	repo.LoadData(ctx)

	require.NoError(t, repo.UpsertOrder(ctx, newOrder("A")))
	require.NoError(t, repo.RemoveOrder(ctx, "A"))
	require.NoError(t, repo.UpsertProduct(ctx, domain.Product{ID: "x", Name: "X", Price: 1}))

	require.Len(t, publisher.events, 3)
	require.Equal(t, domain.ChangeOrderUpdated, publisher.events[0].Kind)
	require.NotNil(t, publisher.events[0].Order)
	require.Equal(t, fixed, publisher.events[0].OccurredAt)
	require.Equal(t, domain.ChangeOrderRemoved, publisher.events[1].Kind)
	require.Equal(t, domain.ChangeMenuUpdated, publisher.events[2].Kind)
	require.Equal(t, 6, publisher.events[2].MenuSize)
}

func TestSetOrderCompleted_LegacyOrderWithoutItems(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKeyValueStore()
	require.NoError(t, store.PutString(ctx, domain.OrdersKey,
		`[{"id":"o1","tableNumber":"3","items":[],"createdAt":"2024-05-01T12:30:00","isCompleted":false},`+
			`{"id":"o2","tableNumber":"","items":[{"id":"i","product":{"id":"1","name":"Tea","price":2},"quantity":0}],"createdAt":"2024-05-01T12:31:00"}]`))

	repo := repository.New(store, loggerForTests())
	repo.LoadData(ctx)
	require.Len(t, repo.Orders(), 2)

	for _, id := range []string{"o1", "o2"} {
		completed, err := repo.SetOrderCompleted(ctx, id, true)
		require.NoError(t, err, id)
		require.True(t, completed.IsCompleted)
	}

	stored := storedJSON[[]domain.Order](t, store, domain.OrdersKey)
	require.True(t, stored[0].IsCompleted)
	require.True(t, stored[1].IsCompleted)

	reopened, err := repo.SetOrderCompleted(ctx, "o1", false)
	require.NoError(t, err)
	require.False(t, reopened.IsCompleted)

	_, err = repo.SetOrderCompleted(ctx, "ghost", true)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
	_, err = repo.SetOrderCompleted(ctx, " ", true)
	require.ErrorIs(t, err, domain.ErrOrderIDRequired)
}
