package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/kelnar/internal/domain"
)

const (
	collectionProducts = "products"
	collectionOrders   = "orders"

	opUpsert = "upsert"
	opRemove = "remove"
	opClear  = "clear"
	opLoad   = "load"
)

// Metrics — то, что репозиторий сообщает наружу о своей работе.
type Metrics interface {
	RecordMutation(collection, op string)
	RecordPersistFailure(collection string)
	RecordLoadFallback(collection, reason string)
	SetCollectionSize(collection string, size int)
}

type noopMetrics struct{}

func (noopMetrics) RecordMutation(string, string)     {}
func (noopMetrics) RecordPersistFailure(string)       {}
func (noopMetrics) RecordLoadFallback(string, string) {}
func (noopMetrics) SetCollectionSize(string, int)     {}

// Option настраивает DataRepository.
type Option func(*DataRepository)

// WithMetrics подключает сбор метрик.
func WithMetrics(m Metrics) Option {
	return func(r *DataRepository) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithPublisher подключает публикацию событий об изменениях.
func WithPublisher(p domain.ChangePublisher) Option {
	return func(r *DataRepository) { r.publisher = p }
}

// WithProductsKey переопределяет ключ, под которым хранится меню.
func WithProductsKey(key string) Option {
	return func(r *DataRepository) {
		if key != "" {
			r.productsKey = key
		}
	}
}

// WithSeedProducts задаёт меню, которое подставляется вместо отсутствующего
// или повреждённого. nil означает пустое меню.
func WithSeedProducts(products []domain.Product) Option {
	return func(r *DataRepository) { r.seed = cloneProducts(products) }
}

// WithClock подменяет источник времени для событий.
func WithClock(now func() time.Time) Option {
	return func(r *DataRepository) {
		if now != nil {
			r.now = now
		}
	}
}

// DataRepository — единственный источник правды для меню и заказов.
// Каждая мутация целиком перезаписывает соответствующий ключ хранилища
// до того, как вызов вернёт управление.
type DataRepository struct {
	store       domain.KeyValueStore
	logger      *log.Entry
	metrics     Metrics
	publisher   domain.ChangePublisher
	productsKey string
	ordersKey   string
	seed        []domain.Product
	now         func() time.Time

	// mu упорядочивает мутации и соответствующие им записи в хранилище.
	mu       sync.Mutex
	products *State[[]domain.Product]
	orders   *State[[]domain.Order]
}

// New создаёт репозиторий поверх хранилища. Данные не читаются до LoadData.
func New(store domain.KeyValueStore, logger *log.Entry, opts ...Option) *DataRepository {
	if logger == nil {
		logger = log.WithField("component", "repository")
	}
	r := &DataRepository{
		store:       store,
		logger:      logger,
		metrics:     noopMetrics{},
		productsKey: domain.ProductsKey,
		ordersKey:   domain.OrdersKey,
		seed:        domain.DefaultProducts(),
		now:         time.Now,
		products:    NewState([]domain.Product{}, cloneProducts),
		orders:      NewState([]domain.Order{}, cloneOrders),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// LoadData читает обе коллекции. Ошибки чтения и повреждённый JSON не
// прерывают запуск: меню откатывается к стартовому, заказы — к пустому списку.
func (r *DataRepository) LoadData(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.loadProducts(ctx)
	r.loadOrders(ctx)
}

func (r *DataRepository) loadProducts(ctx context.Context) {
	logger := r.logger.WithField("key", r.productsKey)

	raw, ok := r.read(ctx, r.productsKey)
	if !ok {
		r.metrics.RecordLoadFallback(collectionProducts, "missing")
		r.resetProducts(ctx)
		return
	}

	var products []domain.Product
	if err := json.Unmarshal([]byte(raw), &products); err != nil {
		logger.WithError(err).Warn("повреждённые данные меню, используем стартовое меню")
		r.metrics.RecordLoadFallback(collectionProducts, "corrupt")
		r.resetProducts(ctx)
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	r.setProducts(products)
	r.metrics.RecordMutation(collectionProducts, opLoad)
	logger.WithField("count", len(products)).Debug("меню загружено")
}

// resetProducts подставляет стартовое меню и сразу его сохраняет.
func (r *DataRepository) resetProducts(ctx context.Context) {
	r.setProducts(cloneProducts(r.seed))
	r.persistProducts(ctx)
}

func (r *DataRepository) loadOrders(ctx context.Context) {
	logger := r.logger.WithField("key", r.ordersKey)

	raw, ok := r.read(ctx, r.ordersKey)
	if !ok {
		r.metrics.RecordLoadFallback(collectionOrders, "missing")
		r.setOrders([]domain.Order{})
		return
	}

	var orders []domain.Order
	if err := json.Unmarshal([]byte(raw), &orders); err != nil {
		logger.WithError(err).Warn("повреждённые данные заказов, начинаем с пустого списка")
		r.metrics.RecordLoadFallback(collectionOrders, "corrupt")
		r.setOrders([]domain.Order{})
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	r.setOrders(orders)
	r.metrics.RecordMutation(collectionOrders, opLoad)
	logger.WithField("count", len(orders)).Debug("заказы загружены")
}

// read возвращает значение ключа; ошибка хранилища считается отсутствием значения.
func (r *DataRepository) read(ctx context.Context, key string) (string, bool) {
	raw, ok, err := r.store.GetString(ctx, key)
	if err != nil {
		r.logger.WithError(err).WithField("key", key).Warn("не удалось прочитать хранилище")
		return "", false
	}
	return raw, ok
}

// Products возвращает копию текущего меню.
func (r *DataRepository) Products() []domain.Product {
	return r.products.Value()
}

// Orders возвращает копию текущего списка заказов, новые — первыми.
func (r *DataRepository) Orders() []domain.Order {
	return r.orders.Value()
}

// SubscribeProducts отдаёт текущее меню и все последующие изменения.
func (r *DataRepository) SubscribeProducts(ctx context.Context) <-chan []domain.Product {
	return r.products.Subscribe(ctx)
}

// SubscribeOrders отдаёт текущие заказы и все последующие изменения.
func (r *DataRepository) SubscribeOrders(ctx context.Context) <-chan []domain.Order {
	return r.orders.Subscribe(ctx)
}

// GetProductByID ищет позицию меню линейным проходом.
func (r *DataRepository) GetProductByID(id string) (domain.Product, bool) {
	for _, p := range r.products.Value() {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Product{}, false
}

// GetOrderByID ищет заказ линейным проходом.
func (r *DataRepository) GetOrderByID(id string) (domain.Order, bool) {
	for _, o := range r.orders.Value() {
		if o.ID == id {
			return o, true
		}
	}
	return domain.Order{}, false
}

// UpsertProduct заменяет позицию с тем же ID или добавляет её в конец меню.
func (r *DataRepository) UpsertProduct(ctx context.Context, product domain.Product) error {
	if err := product.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	products := r.products.Value()
	replaced := false
	for idx := range products {
		if products[idx].ID == product.ID {
			products[idx] = product
			replaced = true
			break
		}
	}
	if !replaced {
		products = append(products, product)
	}

	r.setProducts(products)
	r.persistProducts(ctx)
	r.metrics.RecordMutation(collectionProducts, opUpsert)
	r.publish(domain.ChangeEvent{Kind: domain.ChangeMenuUpdated, EntityID: product.ID, MenuSize: len(products)})
	return nil
}

// RemoveProduct удаляет позицию меню. Отсутствующий ID не считается ошибкой.
func (r *DataRepository) RemoveProduct(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.products.Value()
	products := current[:0]
	for _, p := range current {
		if p.ID != id {
			products = append(products, p)
		}
	}

	r.setProducts(products)
	r.persistProducts(ctx)
	r.metrics.RecordMutation(collectionProducts, opRemove)
	r.publish(domain.ChangeEvent{Kind: domain.ChangeMenuUpdated, EntityID: id, MenuSize: len(products)})
	return nil
}

// ClearAllProducts очищает меню и сохраняет пустой список.
func (r *DataRepository) ClearAllProducts(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.setProducts([]domain.Product{})
	r.persistProducts(ctx)
	r.metrics.RecordMutation(collectionProducts, opClear)
	r.publish(domain.ChangeEvent{Kind: domain.ChangeMenuUpdated})
	return nil
}

// UpsertOrder заменяет заказ на месте или вставляет новый в начало списка.
func (r *DataRepository) UpsertOrder(ctx context.Context, order domain.Order) error {
	if err := order.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.storeOrder(ctx, order.Clone(), true)
	return nil
}

// UpdateOrder заменяет только уже существующий заказ.
func (r *DataRepository) UpdateOrder(ctx context.Context, order domain.Order) error {
	if err := order.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.storeOrder(ctx, order.Clone(), false) {
		return fmt.Errorf("update order %s: %w", order.ID, domain.ErrOrderNotFound)
	}
	return nil
}

// SetOrderCompleted меняет только статус заказа. Остальные поля не
// проверяются: загруженный заказ может быть без позиций или номера столика.
func (r *DataRepository) SetOrderCompleted(ctx context.Context, id string, completed bool) (domain.Order, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Order{}, domain.ErrOrderIDRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	orders := r.orders.Value()
	idx := indexOfOrder(orders, id)
	if idx < 0 {
		return domain.Order{}, fmt.Errorf("order %s: %w", id, domain.ErrOrderNotFound)
	}
	order := orders[idx]
	if order.IsCompleted == completed {
		return order, nil
	}
	order.IsCompleted = completed
	r.storeOrder(ctx, order.Clone(), false)
	return order, nil
}

// storeOrder должен вызываться под r.mu. Возвращает false, если заказа нет
// и вставка запрещена.
func (r *DataRepository) storeOrder(ctx context.Context, order domain.Order, allowInsert bool) bool {
	orders := r.orders.Value()
	idx := indexOfOrder(orders, order.ID)
	switch {
	case idx >= 0:
		orders[idx] = order
	case allowInsert:
		orders = append([]domain.Order{order}, orders...)
	default:
		return false
	}

	r.setOrders(orders)
	r.persistOrders(ctx)
	r.metrics.RecordMutation(collectionOrders, opUpsert)
	stored := order.Clone()
	r.publish(domain.ChangeEvent{Kind: domain.ChangeOrderUpdated, EntityID: order.ID, Order: &stored})
	return true
}

// RemoveOrder удаляет заказ. Отсутствующий ID не считается ошибкой.
func (r *DataRepository) RemoveOrder(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.orders.Value()
	orders := current[:0]
	for _, o := range current {
		if o.ID != id {
			orders = append(orders, o)
		}
	}

	r.setOrders(orders)
	r.persistOrders(ctx)
	r.metrics.RecordMutation(collectionOrders, opRemove)
	r.publish(domain.ChangeEvent{Kind: domain.ChangeOrderRemoved, EntityID: id})
	return nil
}

func (r *DataRepository) setProducts(products []domain.Product) {
	r.products.Set(products)
	r.metrics.SetCollectionSize(collectionProducts, len(products))
}

func (r *DataRepository) setOrders(orders []domain.Order) {
	r.orders.Set(orders)
	r.metrics.SetCollectionSize(collectionOrders, len(orders))
}

func (r *DataRepository) persistProducts(ctx context.Context) {
	r.persist(ctx, r.productsKey, collectionProducts, r.products.Value())
}

func (r *DataRepository) persistOrders(ctx context.Context) {
	r.persist(ctx, r.ordersKey, collectionOrders, r.orders.Value())
}

// persist сериализует коллекцию целиком. Ошибки записи гасятся здесь:
// изменение остаётся в памяти, но может не пережить перезапуск.
func (r *DataRepository) persist(ctx context.Context, key, collection string, value any) {
	logger := r.logger.WithField("key", key)

	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		logger.WithError(err).Error("не удалось сериализовать коллекцию")
		r.metrics.RecordPersistFailure(collection)
		return
	}
	if err := r.store.PutString(ctx, key, string(payload)); err != nil {
		logger.WithError(err).Warn("не удалось сохранить коллекцию")
		r.metrics.RecordPersistFailure(collection)
	}
}

func (r *DataRepository) publish(event domain.ChangeEvent) {
	if r.publisher == nil {
		return
	}
	event.OccurredAt = r.now().UTC()
	if err := r.publisher.Publish(event); err != nil {
		r.logger.WithError(err).WithFields(log.Fields{
			"kind":      event.Kind,
			"entity_id": event.EntityID,
		}).Warn("не удалось опубликовать событие изменения")
	}
}

func indexOfOrder(orders []domain.Order, id string) int {
	for idx := range orders {
		if orders[idx].ID == id {
			return idx
		}
	}
	return -1
}

func cloneProducts(in []domain.Product) []domain.Product {
	out := make([]domain.Product, len(in))
	copy(out, in)
	return out
}

func cloneOrders(in []domain.Order) []domain.Order {
	out := make([]domain.Order, len(in))
	for idx, o := range in {
		out[idx] = o.Clone()
	}
	return out
}
