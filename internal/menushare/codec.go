// Package menushare кодирует меню в компактную строку для передачи в ссылке
// и разбирает такие строки обратно, пропуская некорректные записи.
//
// Формат: [name;price;description|name;price|...]. Разделители внутри
// названий и описаний не экранируются, чтобы ссылки старых клиентов
// продолжали открываться.
package menushare

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/vladislavdragonenkov/kelnar/internal/domain"
)

const (
	fieldSep  = ";"
	recordSep = "|"
	openMark  = "["
	closeMark = "]"

	reservedChars = fieldSep + recordSep + openMark + closeMark
)

// SkipReason — причина, по которой запись ссылки не была импортирована.
type SkipReason string

const (
	SkipMalformed    SkipReason = "malformed"
	SkipEmptyName    SkipReason = "empty_name"
	SkipInvalidPrice SkipReason = "invalid_price"
)

// ImportItem — позиция меню из ссылки. ID назначается при применении импорта.
type ImportItem struct {
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
}

// SkippedItem описывает отброшенную запись.
type SkippedItem struct {
	Reason   SkipReason `json:"reason"`
	Record   string     `json:"record"`
	Name     string     `json:"name,omitempty"`
	RawPrice string     `json:"raw_price,omitempty"`
}

// String возвращает подпись для показа пользователю.
func (s SkippedItem) String() string {
	switch s.Reason {
	case SkipEmptyName:
		return "empty name"
	case SkipInvalidPrice:
		return fmt.Sprintf("%s (invalid price: %q)", s.Name, s.RawPrice)
	default:
		return fmt.Sprintf("malformed entry: %q", s.Record)
	}
}

// ImportState — результат разбора ссылки. Visible выставляется, только если
// найдена хотя бы одна корректная позиция.
type ImportState struct {
	Items   []ImportItem  `json:"items"`
	Visible bool          `json:"visible"`
	Skipped []SkippedItem `json:"skipped"`
}

// SkippedLabels возвращает подписи всех пропущенных записей.
func (s ImportState) SkippedLabels() []string {
	labels := make([]string, 0, len(s.Skipped))
	for _, item := range s.Skipped {
		labels = append(labels, item.String())
	}
	return labels
}

// Encode сериализует меню. Пустое меню кодируется как "[]".
func Encode(products []domain.Product) string {
	records := make([]string, 0, len(products))
	for _, p := range products {
		record := p.Name + fieldSep + formatPrice(p.Price)
		if p.Description != "" {
			record += fieldSep + p.Description
		}
		records = append(records, record)
	}
	return openMark + strings.Join(records, recordSep) + closeMark
}

// UnsafeProducts возвращает названия позиций, которые не переживут
// кодирование: в названии или описании встречаются служебные символы.
func UnsafeProducts(products []domain.Product) []string {
	var names []string
	for _, p := range products {
		if strings.ContainsAny(p.Name, reservedChars) || strings.ContainsAny(p.Description, reservedChars) {
			names = append(names, p.Name)
		}
	}
	return names
}

// Parse разбирает строку меню. Некорректные записи попадают в Skipped
// и не прерывают разбор остальных.
func Parse(payload string) ImportState {
	body := strings.TrimSpace(payload)
	body = strings.TrimPrefix(body, openMark)
	body = strings.TrimSuffix(body, closeMark)

	state := ImportState{
		Items:   []ImportItem{},
		Skipped: []SkippedItem{},
	}
	if strings.TrimSpace(body) == "" {
		return state
	}

	for _, record := range strings.Split(body, recordSep) {
		if strings.TrimSpace(record) == "" {
			continue
		}
		item, skipped, ok := parseRecord(record)
		if !ok {
			state.Skipped = append(state.Skipped, skipped)
			continue
		}
		state.Items = append(state.Items, item)
	}

	state.Visible = len(state.Items) > 0
	return state
}

func parseRecord(record string) (ImportItem, SkippedItem, bool) {
	parts := strings.Split(record, fieldSep)
	if len(parts) < 2 {
		return ImportItem{}, SkippedItem{Reason: SkipMalformed, Record: record}, false
	}

	name := strings.TrimSpace(parts[0])
	rawPrice := strings.TrimSpace(parts[1])
	description := ""
	if len(parts) > 2 {
		description = strings.TrimSpace(parts[2])
	}

	if name == "" {
		return ImportItem{}, SkippedItem{Reason: SkipEmptyName, Record: record, RawPrice: rawPrice}, false
	}

	price, err := strconv.ParseFloat(rawPrice, 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return ImportItem{}, SkippedItem{Reason: SkipInvalidPrice, Record: record, Name: name, RawPrice: rawPrice}, false
	}

	return ImportItem{Name: name, Price: price, Description: description}, SkippedItem{}, true
}

func formatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', -1, 64)
}
