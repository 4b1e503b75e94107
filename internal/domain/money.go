package domain

import (
	"fmt"
	"math"
)

// CurrencyMarker добавляется к отформатированной цене.
const CurrencyMarker = "€"

// ToMinor переводит сумму в центы. math.Round округляет половину от нуля.
func ToMinor(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// FromMinor переводит центы обратно в денежную сумму.
func FromMinor(minor int64) float64 {
	return float64(minor) / 100
}

// FormatCurrency форматирует сумму как <целая часть>.<два знака>.
func FormatCurrency(amount float64) string {
	minor := ToMinor(amount)
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

// FormatPrice форматирует сумму вместе с маркером валюты.
func FormatPrice(amount float64) string {
	return FormatCurrency(amount) + " " + CurrencyMarker
}
