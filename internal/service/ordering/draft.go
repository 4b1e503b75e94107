package ordering

import (
	"slices"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/kelnar/internal/domain"
)

// Draft — редактируемый заказ до сохранения в репозиторий.
type Draft struct {
	orderID     string
	tableNumber string
	items       []domain.OrderItem
	createdAt   time.Time
	completed   bool
	newID       func() string
}

func newDraft(newID func() string) *Draft {
	return &Draft{newID: newID}
}

func draftFromOrder(order domain.Order, newID func() string) *Draft {
	order = order.Clone()
	return &Draft{
		orderID:     order.ID,
		tableNumber: order.TableNumber,
		items:       order.Items,
		createdAt:   order.CreatedAt,
		completed:   order.IsCompleted,
		newID:       newID,
	}
}

// OrderID пуст для нового заказа.
func (d *Draft) OrderID() string { return d.orderID }

// IsEditing сообщает, редактируется ли уже сохранённый заказ.
func (d *Draft) IsEditing() bool { return d.orderID != "" }

func (d *Draft) TableNumber() string { return d.tableNumber }

func (d *Draft) SetTableNumber(number string) {
	d.tableNumber = strings.TrimSpace(number)
}

// Items возвращает копию позиций.
func (d *Draft) Items() []domain.OrderItem {
	out := make([]domain.OrderItem, len(d.items))
	for idx, item := range d.items {
		out[idx] = domain.NewOrderItem(item.ID, item.Product, item.Quantity, item.Customizations)
	}
	return out
}

// AddProduct добавляет копию позиции меню. Если позиция с тем же товаром
// и теми же пожеланиями уже есть, увеличивается её количество.
// Количество меньше 1 считается равным 1.
func (d *Draft) AddProduct(product domain.Product, quantity int, customizations []string) domain.OrderItem {
	if quantity < 1 {
		quantity = 1
	}
	for idx := range d.items {
		item := &d.items[idx]
		if item.Product.ID == product.ID && slices.Equal(item.Customizations, customizations) {
			item.Quantity += quantity
			return *item
		}
	}

	item := domain.NewOrderItem(d.newID(), product, quantity, customizations)
	d.items = append(d.items, item)
	return item
}

// RemoveItem удаляет позицию. Возвращает false, если позиции нет.
func (d *Draft) RemoveItem(itemID string) bool {
	idx := d.indexOf(itemID)
	if idx < 0 {
		return false
	}
	d.items = slices.Delete(d.items, idx, idx+1)
	return true
}

// UpdateItemQuantity меняет количество; ноль и отрицательные значения
// удаляют позицию целиком.
func (d *Draft) UpdateItemQuantity(itemID string, quantity int) error {
	if quantity <= 0 {
		if !d.RemoveItem(itemID) {
			return domain.ErrItemNotFound
		}
		return nil
	}
	idx := d.indexOf(itemID)
	if idx < 0 {
		return domain.ErrItemNotFound
	}
	d.items[idx].Quantity = quantity
	return nil
}

// UpdateItemCustomizations заменяет список пожеланий позиции.
func (d *Draft) UpdateItemCustomizations(itemID string, customizations []string) error {
	idx := d.indexOf(itemID)
	if idx < 0 {
		return domain.ErrItemNotFound
	}
	d.items[idx].Customizations = slices.Clone(customizations)
	return nil
}

// Total считается по текущим позициям черновика.
func (d *Draft) Total() float64 {
	return d.order().Total()
}

// Validate проверяет, можно ли сохранить черновик.
func (d *Draft) Validate() error {
	if d.tableNumber == "" {
		return domain.ErrTableNumberRequired
	}
	if len(d.items) == 0 {
		return domain.ErrOrderItemsRequired
	}
	return nil
}

// Clear сбрасывает черновик в состояние нового пустого заказа.
func (d *Draft) Clear() {
	d.orderID = ""
	d.tableNumber = ""
	d.items = nil
	d.createdAt = time.Time{}
	d.completed = false
}

func (d *Draft) order() domain.Order {
	return domain.Order{
		ID:          d.orderID,
		TableNumber: d.tableNumber,
		Items:       d.Items(),
		CreatedAt:   d.createdAt,
		IsCompleted: d.completed,
	}
}

func (d *Draft) indexOf(itemID string) int {
	for idx := range d.items {
		if d.items[idx].ID == itemID {
			return idx
		}
	}
	return -1
}
