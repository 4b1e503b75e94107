package domain

import "errors"

var (
	// Ошибка отсутствующего идентификатора позиции меню.
	ErrProductIDRequired = errors.New("product id is required")
	// Ошибка пустого названия позиции меню.
	ErrProductNameRequired = errors.New("product name is required")
	// Ошибка нечисловой или неположительной цены.
	ErrProductPriceInvalid = errors.New("product price must be a positive number")
	// Ошибка отсутствующего идентификатора заказа.
	ErrOrderIDRequired = errors.New("order id is required")
	// Ошибка пустого номера столика.
	ErrTableNumberRequired = errors.New("table number is required")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrOrderItemsRequired = errors.New("order must contain at least one item")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("item quantity must be greater than zero")
	// ErrProductNotFound возвращается, если позиции меню нет в репозитории.
	ErrProductNotFound = errors.New("product not found")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrItemNotFound — позиции нет в редактируемом заказе.
	ErrItemNotFound = errors.New("order item not found")
	// ErrImportNotPending — нет разобранного импорта меню, который можно применить.
	ErrImportNotPending = errors.New("no pending menu import")
	// ErrStoreClosed — хранилище уже закрыто.
	ErrStoreClosed = errors.New("key-value store is closed")
)

// IsNotFound проверяет, относится ли ошибка к отсутствующей сущности.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrItemNotFound)
}

// IsValidation проверяет, является ли ошибка нарушением входных данных.
func IsValidation(err error) bool {
	switch {
	case errors.Is(err, ErrProductIDRequired),
		errors.Is(err, ErrProductNameRequired),
		errors.Is(err, ErrProductPriceInvalid),
		errors.Is(err, ErrOrderIDRequired),
		errors.Is(err, ErrTableNumberRequired),
		errors.Is(err, ErrOrderItemsRequired),
		errors.Is(err, ErrItemQtyInvalid):
		return true
	default:
		return false
	}
}
