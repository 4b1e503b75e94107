package domain

import "strings"

// Product — позиция меню.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
}

// PriceMinor возвращает цену в центах с округлением half away from zero.
func (p Product) PriceMinor() int64 {
	return ToMinor(p.Price)
}

// Validate проверяет инварианты позиции меню перед сохранением.
func (p Product) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return ErrProductIDRequired
	}
	if strings.TrimSpace(p.Name) == "" {
		return ErrProductNameRequired
	}
	if p.Price < 0 {
		return ErrProductPriceInvalid
	}
	return nil
}

// DefaultProducts возвращает стартовое меню, которым заполняется пустое хранилище.
func DefaultProducts() []Product {
	return []Product{
		{ID: "1", Name: "Burger", Price: 12.99, Description: "Classic beef burger with lettuce, tomato, and onion"},
		{ID: "2", Name: "Hot Dog", Price: 8.50, Description: "Grilled hot dog with ketchup and mustard"},
		{ID: "3", Name: "French Fries", Price: 4.99, Description: "Crispy golden french fries"},
		{ID: "4", Name: "Coca Cola", Price: 2.50, Description: "Cold refreshing cola drink"},
		{ID: "5", Name: "Pizza Margherita", Price: 15.99, Description: "Classic pizza with tomato sauce, mozzarella, and basil"},
	}
}
