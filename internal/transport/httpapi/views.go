package httpapi

import (
	"time"

	"github.com/vladislavdragonenkov/kelnar/internal/domain"
)

type productView struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Price          float64 `json:"price"`
	PriceFormatted string  `json:"priceFormatted"`
	Description    string  `json:"description"`
}

func newProductView(p domain.Product) productView {
	return productView{
		ID:             p.ID,
		Name:           p.Name,
		Price:          p.Price,
		PriceFormatted: domain.FormatPrice(p.Price),
		Description:    p.Description,
	}
}

func newProductViews(products []domain.Product) []productView {
	out := make([]productView, 0, len(products))
	for _, p := range products {
		out = append(out, newProductView(p))
	}
	return out
}

type orderItemView struct {
	ID             string      `json:"id"`
	Product        productView `json:"product"`
	Quantity       int         `json:"quantity"`
	Customizations []string    `json:"customizations"`
	Subtotal       float64     `json:"subtotal"`
}

// orderView — заказ с вычисленными суммами; в хранилище суммы не пишутся.
type orderView struct {
	ID             string          `json:"id"`
	TableNumber    string          `json:"tableNumber"`
	Items          []orderItemView `json:"items"`
	CreatedAt      time.Time       `json:"createdAt"`
	IsCompleted    bool            `json:"isCompleted"`
	Total          float64         `json:"total"`
	TotalFormatted string          `json:"totalFormatted"`
}

func newOrderView(o domain.Order) orderView {
	items := make([]orderItemView, 0, len(o.Items))
	for _, item := range o.Items {
		customizations := item.Customizations
		if customizations == nil {
			customizations = []string{}
		}
		items = append(items, orderItemView{
			ID:             item.ID,
			Product:        newProductView(item.Product),
			Quantity:       item.Quantity,
			Customizations: customizations,
			Subtotal:       item.Subtotal(),
		})
	}
	return orderView{
		ID:             o.ID,
		TableNumber:    o.TableNumber,
		Items:          items,
		CreatedAt:      o.CreatedAt,
		IsCompleted:    o.IsCompleted,
		Total:          o.Total(),
		TotalFormatted: domain.FormatPrice(o.Total()),
	}
}

func newOrderViews(orders []domain.Order) []orderView {
	out := make([]orderView, 0, len(orders))
	for _, o := range orders {
		out = append(out, newOrderView(o))
	}
	return out
}
