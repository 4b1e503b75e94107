package menushare

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/vladislavdragonenkov/kelnar/internal/domain"
)

// ImportRoute — фрагмент ссылки, который открывает экран импорта меню.
const ImportRoute = "menu/import"

const dataParam = "data"

// ErrNoMenuData — в ссылке нет параметра data с меню.
var ErrNoMenuData = errors.New("share link carries no menu data")

// BuildShareURL собирает ссылку вида <base>#menu/import?data=<payload>.
func BuildShareURL(baseURL string, products []domain.Product) string {
	return baseURL + "#" + ImportRoute + "?" + dataParam + "=" + encodeURIComponent(Encode(products))
}

// ParseShareURL извлекает меню из ссылки. Вместо ссылки можно передать
// саму строку меню или значение параметра data.
func ParseShareURL(raw string) (ImportState, error) {
	payload, err := ExtractPayload(raw)
	if err != nil {
		return ImportState{}, err
	}
	return Parse(payload), nil
}

// ExtractPayload возвращает раскодированную строку меню.
func ExtractPayload(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrNoMenuData
	}

	// Строка меню может сама содержать '#', поэтому проверяется первой.
	if strings.HasPrefix(raw, openMark) {
		return raw, nil
	}

	fragment := raw
	if idx := strings.Index(raw, "#"); idx >= 0 {
		fragment = raw[idx+1:]
	}

	query := fragment
	if idx := strings.Index(fragment, "?"); idx >= 0 {
		query = fragment[idx+1:]
	}

	for _, pair := range strings.Split(query, "&") {
		key, value, found := strings.Cut(pair, "=")
		if !found || key != dataParam {
			continue
		}
		// PathUnescape не превращает '+' в пробел: '+' в цене или названии сохраняется.
		decoded, err := url.PathUnescape(value)
		if err != nil {
			return "", fmt.Errorf("decode menu data: %w", err)
		}
		return decoded, nil
	}

	// Значение параметра без ключа: percent-encoded строка меню.
	if decoded, err := url.PathUnescape(fragment); err == nil && strings.HasPrefix(decoded, openMark) {
		return decoded, nil
	}
	return "", ErrNoMenuData
}

// encodeURIComponent кодирует значение так же, как одноимённая функция в браузере:
// пробел становится %20, а не '+'.
func encodeURIComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
