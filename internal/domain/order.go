package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// localDateTimeLayout — формат времени без зоны, в котором мобильные клиенты
// сохраняли createdAt.
const localDateTimeLayout = "2006-01-02T15:04:05.999999999"

// OrderItem — позиция заказа. Product хранится копией на момент добавления,
// поэтому правки меню не меняют уже оформленные заказы.
type OrderItem struct {
	ID             string
	Product        Product
	Quantity       int
	Customizations []string
}

// NewOrderItem создаёт позицию с собственной копией списка пожеланий.
func NewOrderItem(id string, product Product, quantity int, customizations []string) OrderItem {
	return OrderItem{
		ID:             id,
		Product:        product,
		Quantity:       quantity,
		Customizations: cloneStrings(customizations),
	}
}

// amount — price * quantity без округления.
func (i OrderItem) amount() float64 {
	return i.Product.Price * float64(i.Quantity)
}

// SubtotalMinor — стоимость позиции в центах. Округляется произведение,
// а не цена за единицу: цены бывают дробнее цента.
func (i OrderItem) SubtotalMinor() int64 {
	return ToMinor(i.amount())
}

// Subtotal вычисляется при каждом чтении и нигде не хранится.
func (i OrderItem) Subtotal() float64 {
	return FromMinor(i.SubtotalMinor())
}

type orderItemJSON struct {
	ID             string   `json:"id"`
	Product        Product  `json:"product"`
	Quantity       int      `json:"quantity"`
	Customizations []string `json:"customizations"`
}

// MarshalJSON пишет позицию без производного subtotal.
func (i OrderItem) MarshalJSON() ([]byte, error) {
	customizations := i.Customizations
	if customizations == nil {
		customizations = []string{}
	}
	return json.Marshal(orderItemJSON{
		ID:             i.ID,
		Product:        i.Product,
		Quantity:       i.Quantity,
		Customizations: customizations,
	})
}

// UnmarshalJSON читает позицию; отсутствующее количество считается равным 1,
// сохранённый subtotal игнорируется.
func (i *OrderItem) UnmarshalJSON(data []byte) error {
	aux := orderItemJSON{Quantity: 1}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*i = OrderItem{
		ID:             aux.ID,
		Product:        aux.Product,
		Quantity:       aux.Quantity,
		Customizations: aux.Customizations,
	}
	return nil
}

// Order агрегирует позиции одного столика.
type Order struct {
	ID          string
	TableNumber string
	Items       []OrderItem
	CreatedAt   time.Time
	IsCompleted bool
}

// TotalMinor — сумма заказа в центах, округляется один раз.
func (o Order) TotalMinor() int64 {
	var total float64
	for _, item := range o.Items {
		total += item.amount()
	}
	return ToMinor(total)
}

// Total — сумма subtotal всех позиций, считается на лету.
func (o Order) Total() float64 {
	return FromMinor(o.TotalMinor())
}

// Validate проверяет инварианты заказа и возвращает первую найденную ошибку.
func (o Order) Validate() error {
	if strings.TrimSpace(o.ID) == "" {
		return ErrOrderIDRequired
	}
	if strings.TrimSpace(o.TableNumber) == "" {
		return ErrTableNumberRequired
	}
	if len(o.Items) == 0 {
		return ErrOrderItemsRequired
	}
	for _, item := range o.Items {
		if item.Quantity < 1 {
			return ErrItemQtyInvalid
		}
	}
	return nil
}

// Clone возвращает глубокую копию заказа.
func (o Order) Clone() Order {
	out := o
	if o.Items != nil {
		out.Items = make([]OrderItem, len(o.Items))
		for idx, item := range o.Items {
			out.Items[idx] = NewOrderItem(item.ID, item.Product, item.Quantity, item.Customizations)
		}
	}
	return out
}

type orderJSON struct {
	ID          string      `json:"id"`
	TableNumber string      `json:"tableNumber"`
	Items       []OrderItem `json:"items"`
	CreatedAt   string      `json:"createdAt"`
	IsCompleted bool        `json:"isCompleted"`
}

// MarshalJSON пишет createdAt в RFC 3339.
func (o Order) MarshalJSON() ([]byte, error) {
	items := o.Items
	if items == nil {
		items = []OrderItem{}
	}
	return json.Marshal(orderJSON{
		ID:          o.ID,
		TableNumber: o.TableNumber,
		Items:       items,
		CreatedAt:   o.CreatedAt.Format(time.RFC3339Nano),
		IsCompleted: o.IsCompleted,
	})
}

// UnmarshalJSON принимает createdAt как в RFC 3339, так и без зоны.
// Позиции с количеством меньше 1 отбрасываются.
func (o *Order) UnmarshalJSON(data []byte) error {
	var aux orderJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	createdAt, err := parseCreatedAt(aux.CreatedAt)
	if err != nil {
		return err
	}

	items := make([]OrderItem, 0, len(aux.Items))
	for _, item := range aux.Items {
		if item.Quantity < 1 {
			continue
		}
		items = append(items, item)
	}

	*o = Order{
		ID:          aux.ID,
		TableNumber: aux.TableNumber,
		Items:       items,
		CreatedAt:   createdAt,
		IsCompleted: aux.IsCompleted,
	}
	return nil
}

func parseCreatedAt(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts, nil
	}
	ts, err := time.ParseInLocation(localDateTimeLayout, raw, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse createdAt %q: %w", raw, err)
	}
	return ts, nil
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
