package ordering

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/kelnar/internal/domain"
)

// Repository — часть DataRepository, нужная заказам.
type Repository interface {
	Products() []domain.Product
	Orders() []domain.Order
	GetProductByID(id string) (domain.Product, bool)
	GetOrderByID(id string) (domain.Order, bool)
	UpsertOrder(ctx context.Context, order domain.Order) error
	SetOrderCompleted(ctx context.Context, id string, completed bool) (domain.Order, error)
	RemoveOrder(ctx context.Context, id string) error
}

// StatusFilter отбирает заказы по состоянию.
type StatusFilter string

const (
	FilterAll       StatusFilter = ""
	FilterActive    StatusFilter = "active"
	FilterCompleted StatusFilter = "completed"
)

// ItemInput — позиция заказа, пришедшая снаружи.
type ItemInput struct {
	ProductID      string
	Quantity       int
	Customizations []string
}

// Service оформляет, редактирует и закрывает заказы.
type Service struct {
	repo   Repository
	logger *log.Entry
	newID  func() string
	now    func() time.Time
}

// NewService создаёт сервис заказов.
func NewService(repo Repository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "ordering")
	}
	return &Service{
		repo:   repo,
		logger: logger,
		newID:  uuid.NewString,
		now:    time.Now,
	}
}

// NewDraft возвращает пустой черновик нового заказа.
func (s *Service) NewDraft() *Draft {
	return newDraft(s.newID)
}

// EditDraft загружает сохранённый заказ в черновик для редактирования.
func (s *Service) EditDraft(orderID string) (*Draft, error) {
	order, ok := s.repo.GetOrderByID(orderID)
	if !ok {
		return nil, fmt.Errorf("edit order %s: %w", orderID, domain.ErrOrderNotFound)
	}
	return draftFromOrder(order, s.newID), nil
}

// Save сохраняет черновик. Новый заказ получает ID и время создания,
// у существующего сохраняются время создания и статус.
func (s *Service) Save(ctx context.Context, draft *Draft) (domain.Order, error) {
	if err := draft.Validate(); err != nil {
		return domain.Order{}, err
	}

	order := draft.order()
	if draft.IsEditing() {
		if _, ok := s.repo.GetOrderByID(order.ID); !ok {
			return domain.Order{}, fmt.Errorf("update order %s: %w", order.ID, domain.ErrOrderNotFound)
		}
	} else {
		order.ID = s.newID()
		order.CreatedAt = s.now().UTC()
		order.IsCompleted = false
	}

	if err := s.repo.UpsertOrder(ctx, order); err != nil {
		return domain.Order{}, err
	}

	s.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"table":    order.TableNumber,
		"items":    len(order.Items),
		"total":    domain.FormatCurrency(order.Total()),
	}).Info("заказ сохранён")

	draft.Clear()
	return order, nil
}

// PlaceOrder оформляет новый заказ из списка позиций меню.
func (s *Service) PlaceOrder(ctx context.Context, tableNumber string, items []ItemInput) (domain.Order, error) {
	draft := s.NewDraft()
	if err := s.fill(draft, tableNumber, items); err != nil {
		return domain.Order{}, err
	}
	return s.Save(ctx, draft)
}

// ReplaceOrder заменяет столик и позиции существующего заказа.
func (s *Service) ReplaceOrder(ctx context.Context, orderID, tableNumber string, items []ItemInput) (domain.Order, error) {
	draft, err := s.EditDraft(orderID)
	if err != nil {
		return domain.Order{}, err
	}
	draft.items = nil
	if err := s.fill(draft, tableNumber, items); err != nil {
		return domain.Order{}, err
	}
	return s.Save(ctx, draft)
}

func (s *Service) fill(draft *Draft, tableNumber string, items []ItemInput) error {
	draft.SetTableNumber(tableNumber)
	for _, in := range items {
		product, ok := s.repo.GetProductByID(in.ProductID)
		if !ok {
			return fmt.Errorf("product %s: %w", in.ProductID, domain.ErrProductNotFound)
		}
		if in.Quantity <= 0 {
			continue
		}
		draft.AddProduct(product, in.Quantity, in.Customizations)
	}
	return nil
}

// UpdateItemQuantity меняет количество позиции сохранённого заказа.
// Ноль и отрицательные значения удаляют позицию; последнюю позицию
// удалить нельзя, для этого удаляется весь заказ.
func (s *Service) UpdateItemQuantity(ctx context.Context, orderID, itemID string, quantity int) (domain.Order, error) {
	draft, err := s.EditDraft(orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if err := draft.UpdateItemQuantity(itemID, quantity); err != nil {
		return domain.Order{}, fmt.Errorf("order %s item %s: %w", orderID, itemID, err)
	}
	return s.Save(ctx, draft)
}

// MarkCompleted переводит заказ в выполненные.
func (s *Service) MarkCompleted(ctx context.Context, orderID string) (domain.Order, error) {
	return s.setCompleted(ctx, orderID, true)
}

// Reopen возвращает выполненный заказ в активные.
func (s *Service) Reopen(ctx context.Context, orderID string) (domain.Order, error) {
	return s.setCompleted(ctx, orderID, false)
}

func (s *Service) setCompleted(ctx context.Context, orderID string, completed bool) (domain.Order, error) {
	order, err := s.repo.SetOrderCompleted(ctx, orderID, completed)
	if err != nil {
		return domain.Order{}, err
	}
	s.logger.WithFields(log.Fields{
		"order_id":  orderID,
		"completed": completed,
	}).Info("статус заказа изменён")
	return order, nil
}

// Delete удаляет заказ.
func (s *Service) Delete(ctx context.Context, orderID string) error {
	if _, ok := s.repo.GetOrderByID(orderID); !ok {
		return fmt.Errorf("delete order %s: %w", orderID, domain.ErrOrderNotFound)
	}
	return s.repo.RemoveOrder(ctx, orderID)
}

// Get возвращает заказ по ID.
func (s *Service) Get(orderID string) (domain.Order, error) {
	order, ok := s.repo.GetOrderByID(orderID)
	if !ok {
		return domain.Order{}, fmt.Errorf("order %s: %w", orderID, domain.ErrOrderNotFound)
	}
	return order, nil
}

// List возвращает заказы в порядке репозитория (новые первыми).
func (s *Service) List(filter StatusFilter) []domain.Order {
	orders := s.repo.Orders()
	if filter == FilterAll {
		return orders
	}

	wantCompleted := filter == FilterCompleted
	out := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		if o.IsCompleted == wantCompleted {
			out = append(out, o)
		}
	}
	return out
}

// FilterProducts ищет позиции меню по подстроке в названии или описании без учёта регистра.
func (s *Service) FilterProducts(query string) []domain.Product {
	products := s.repo.Products()
	query = strings.TrimSpace(query)
	if query == "" {
		return products
	}

	needle := strings.ToLower(query)
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), needle) || strings.Contains(strings.ToLower(p.Description), needle) {
			out = append(out, p)
		}
	}
	return out
}
