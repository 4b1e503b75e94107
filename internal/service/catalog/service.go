package catalog

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/cases"

	"github.com/vladislavdragonenkov/kelnar/internal/domain"
	"github.com/vladislavdragonenkov/kelnar/internal/menushare"
)

// Repository — часть DataRepository, нужная меню.
type Repository interface {
	Products() []domain.Product
	GetProductByID(id string) (domain.Product, bool)
	UpsertProduct(ctx context.Context, product domain.Product) error
	RemoveProduct(ctx context.Context, id string) error
	ClearAllProducts(ctx context.Context) error
}

// ImportMetrics учитывает разбор и применение импорта меню.
type ImportMetrics interface {
	RecordImportParsed(valid, skipped int)
	RecordImportCommitted(action string)
}

type noopImportMetrics struct{}

func (noopImportMetrics) RecordImportParsed(int, int)  {}
func (noopImportMetrics) RecordImportCommitted(string) {}

// ImportAction — выбор пользователя после разбора ссылки.
type ImportAction string

const (
	ImportCancel       ImportAction = "cancel"
	ImportOverwriteAll ImportAction = "overwrite"
	ImportAddToCurrent ImportAction = "merge"
)

// ParseImportAction разбирает название действия.
func ParseImportAction(raw string) (ImportAction, error) {
	switch action := ImportAction(strings.ToLower(strings.TrimSpace(raw))); action {
	case ImportCancel, ImportOverwriteAll, ImportAddToCurrent:
		return action, nil
	default:
		return "", fmt.Errorf("unknown import action %q", raw)
	}
}

// ImportResult — итог применения импорта.
type ImportResult struct {
	Action  ImportAction `json:"action"`
	Added   int          `json:"added"`
	Updated int          `json:"updated"`
}

// ProductForm — данные формы позиции меню в том виде, как их ввёл пользователь.
type ProductForm struct {
	ID          string
	Name        string
	Price       string
	Description string
}

// Service управляет меню: форма позиции, удаление, шаринг и импорт.
type Service struct {
	repo    Repository
	logger  *log.Entry
	metrics ImportMetrics
	baseURL string
	newID   func() string

	mu      sync.Mutex
	pending *menushare.ImportState
}

// NewService создаёт сервис меню. baseURL используется для ссылок шаринга.
func NewService(repo Repository, baseURL string, metrics ImportMetrics, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "catalog")
	}
	if metrics == nil {
		metrics = noopImportMetrics{}
	}
	return &Service{
		repo:    repo,
		logger:  logger,
		metrics: metrics,
		baseURL: baseURL,
		newID:   uuid.NewString,
	}
}

// ValidateForm проверяет форму: непустое название и положительная цена.
func ValidateForm(form ProductForm) (domain.Product, error) {
	name := strings.TrimSpace(form.Name)
	priceText := strings.TrimSpace(form.Price)
	if name == "" {
		return domain.Product{}, domain.ErrProductNameRequired
	}
	price, err := strconv.ParseFloat(priceText, 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return domain.Product{}, domain.ErrProductPriceInvalid
	}
	return domain.Product{
		ID:          strings.TrimSpace(form.ID),
		Name:        name,
		Price:       price,
		Description: strings.TrimSpace(form.Description),
	}, nil
}

// Save создаёт новую позицию или обновляет существующую по ID формы.
func (s *Service) Save(ctx context.Context, form ProductForm) (domain.Product, error) {
	product, err := ValidateForm(form)
	if err != nil {
		return domain.Product{}, err
	}
	if product.ID == "" {
		product.ID = s.newID()
	} else if _, ok := s.repo.GetProductByID(product.ID); !ok {
		return domain.Product{}, fmt.Errorf("product %s: %w", product.ID, domain.ErrProductNotFound)
	}

	if err := s.repo.UpsertProduct(ctx, product); err != nil {
		return domain.Product{}, err
	}
	s.logger.WithFields(log.Fields{
		"product_id": product.ID,
		"name":       product.Name,
		"price":      domain.FormatPrice(product.Price),
	}).Info("позиция меню сохранена")
	return product, nil
}

// List возвращает меню.
func (s *Service) List() []domain.Product {
	return s.repo.Products()
}

// Get возвращает позицию меню по ID.
func (s *Service) Get(id string) (domain.Product, error) {
	product, ok := s.repo.GetProductByID(id)
	if !ok {
		return domain.Product{}, fmt.Errorf("product %s: %w", id, domain.ErrProductNotFound)
	}
	return product, nil
}

// Delete удаляет позицию меню.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, ok := s.repo.GetProductByID(id); !ok {
		return fmt.Errorf("delete product %s: %w", id, domain.ErrProductNotFound)
	}
	return s.repo.RemoveProduct(ctx, id)
}

// DeleteAll очищает меню.
func (s *Service) DeleteAll(ctx context.Context) error {
	return s.repo.ClearAllProducts(ctx)
}

// ShareData кодирует текущее меню в строку для ссылки.
func (s *Service) ShareData() string {
	return menushare.Encode(s.repo.Products())
}

// ShareLink — строка меню, ссылка на импорт и позиции, которые не
// переживут кодирование. Все три поля построены по одному снимку меню.
type ShareLink struct {
	Data   string
	URL    string
	Unsafe []string
}

// Share готовит данные для шаринга текущего меню.
func (s *Service) Share() ShareLink {
	products := s.repo.Products()
	unsafe := menushare.UnsafeProducts(products)
	if len(unsafe) > 0 {
		s.logger.WithField("products", unsafe).Warn("названия содержат служебные символы ссылки")
	}
	return ShareLink{
		Data:   menushare.Encode(products),
		URL:    menushare.BuildShareURL(s.baseURL, products),
		Unsafe: unsafe,
	}
}

// ParseImport разбирает ссылку или строку меню. Импорт становится
// ожидающим, только если найдена хотя бы одна корректная позиция.
func (s *Service) ParseImport(raw string) (menushare.ImportState, error) {
	state, err := menushare.ParseShareURL(raw)
	if err != nil {
		return menushare.ImportState{}, err
	}
	s.metrics.RecordImportParsed(len(state.Items), len(state.Skipped))

	s.mu.Lock()
	defer s.mu.Unlock()
	if state.Visible {
		pending := state
		s.pending = &pending
	} else {
		s.pending = nil
	}

	if len(state.Skipped) > 0 {
		s.logger.WithFields(log.Fields{
			"valid":   len(state.Items),
			"skipped": state.SkippedLabels(),
		}).Warn("часть позиций импорта пропущена")
	}
	return state, nil
}

// PendingImport возвращает разобранный, но ещё не применённый импорт.
func (s *Service) PendingImport() (menushare.ImportState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return menushare.ImportState{}, false
	}
	return *s.pending, true
}

// CommitImport применяет ожидающий импорт выбранным способом.
func (s *Service) CommitImport(ctx context.Context, action ImportAction) (ImportResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return ImportResult{}, domain.ErrImportNotPending
	}

	var (
		result ImportResult
		err    error
	)
	switch action {
	case ImportCancel:
		result = ImportResult{Action: ImportCancel}
	case ImportOverwriteAll:
		result, err = s.overwriteAll(ctx, s.pending.Items)
	case ImportAddToCurrent:
		result, err = s.addToCurrent(ctx, s.pending.Items)
	default:
		return ImportResult{}, fmt.Errorf("unknown import action %q", action)
	}
	if err != nil {
		return ImportResult{}, err
	}

	s.pending = nil
	s.metrics.RecordImportCommitted(string(action))
	s.logger.WithFields(log.Fields{
		"action":  action,
		"added":   result.Added,
		"updated": result.Updated,
	}).Info("импорт меню завершён")
	return result, nil
}

// overwriteAll заменяет меню целиком: каждая позиция получает новый ID.
func (s *Service) overwriteAll(ctx context.Context, items []menushare.ImportItem) (ImportResult, error) {
	if err := s.repo.ClearAllProducts(ctx); err != nil {
		return ImportResult{}, err
	}
	result := ImportResult{Action: ImportOverwriteAll}
	for _, item := range items {
		if err := s.repo.UpsertProduct(ctx, s.productFromImport(s.newID(), item)); err != nil {
			return result, err
		}
		result.Added++
	}
	return result, nil
}

// addToCurrent обновляет позиции с тем же названием (без учёта регистра)
// и добавляет остальные.
func (s *Service) addToCurrent(ctx context.Context, items []menushare.ImportItem) (ImportResult, error) {
	fold := cases.Fold()
	result := ImportResult{Action: ImportAddToCurrent}
	for _, item := range items {
		key := fold.String(item.Name)
		id := ""
		for _, existing := range s.repo.Products() {
			if fold.String(existing.Name) == key {
				id = existing.ID
				break
			}
		}

		if id == "" {
			id = s.newID()
			result.Added++
		} else {
			result.Updated++
		}
		if err := s.repo.UpsertProduct(ctx, s.productFromImport(id, item)); err != nil {
			return result, err
		}
	}
	return result, nil
}

func (s *Service) productFromImport(id string, item menushare.ImportItem) domain.Product {
	return domain.Product{
		ID:          id,
		Name:        item.Name,
		Price:       item.Price,
		Description: item.Description,
	}
}
