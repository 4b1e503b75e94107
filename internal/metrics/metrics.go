package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics содержит метрики репозитория меню/заказов и импорта меню.
type StoreMetrics struct {
	// Мутации коллекций по типу операции.
	mutations *prometheus.CounterVec
	// Неудачные записи в KeyValueStore.
	persistFailures *prometheus.CounterVec
	// Откаты к стартовым значениям при загрузке.
	loadFallbacks *prometheus.CounterVec
	// Текущий размер коллекций.
	collectionSize *prometheus.GaugeVec

	// Импорт меню по ссылке.
	importParsed    prometheus.Counter
	importSkipped   prometheus.Counter
	importCommitted *prometheus.CounterVec
}

// NewStoreMetrics регистрирует метрики в prometheus.DefaultRegisterer.
func NewStoreMetrics() *StoreMetrics {
	return NewStoreMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewStoreMetricsWithRegisterer регистрирует метрики в переданном реестре.
func NewStoreMetricsWithRegisterer(registerer prometheus.Registerer) *StoreMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &StoreMetrics{
		mutations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "kelnar_repository_mutations_total",
			Help: "Total number of repository operations by collection and operation",
		}, []string{"collection", "op"}),
		persistFailures: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "kelnar_repository_persist_failures_total",
			Help: "Total number of failed writes to the key-value store",
		}, []string{"collection"}),
		loadFallbacks: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "kelnar_repository_load_fallbacks_total",
			Help: "Total number of collections replaced by defaults on load",
		}, []string{"collection", "reason"}),
		collectionSize: registerGaugeVec(registerer, prometheus.GaugeOpts{
			Name: "kelnar_repository_collection_size",
			Help: "Current number of entries per collection",
		}, []string{"collection"}),
		importParsed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "kelnar_menu_import_items_parsed_total",
			Help: "Total number of valid products parsed from share links",
		}),
		importSkipped: registerCounter(registerer, prometheus.CounterOpts{
			Name: "kelnar_menu_import_items_skipped_total",
			Help: "Total number of malformed share link records skipped",
		}),
		importCommitted: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "kelnar_menu_import_commits_total",
			Help: "Total number of finished menu imports by action",
		}, []string{"action"}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGaugeVec(registerer prometheus.Registerer, opts prometheus.GaugeOpts, labels []string) *prometheus.GaugeVec {
	collector := prometheus.NewGaugeVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.GaugeVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordMutation увеличивает счётчик операций над коллекцией.
func (m *StoreMetrics) RecordMutation(collection, op string) {
	m.mutations.WithLabelValues(collection, op).Inc()
}

// RecordPersistFailure увеличивает счётчик неудачных записей.
func (m *StoreMetrics) RecordPersistFailure(collection string) {
	m.persistFailures.WithLabelValues(collection).Inc()
}

// RecordLoadFallback фиксирует загрузку коллекции со значениями по умолчанию.
func (m *StoreMetrics) RecordLoadFallback(collection, reason string) {
	m.loadFallbacks.WithLabelValues(collection, reason).Inc()
}

// SetCollectionSize обновляет размер коллекции.
func (m *StoreMetrics) SetCollectionSize(collection string, size int) {
	m.collectionSize.WithLabelValues(collection).Set(float64(size))
}

// RecordImportParsed учитывает результат разбора ссылки с меню.
func (m *StoreMetrics) RecordImportParsed(valid, skipped int) {
	m.importParsed.Add(float64(valid))
	m.importSkipped.Add(float64(skipped))
}

// RecordImportCommitted учитывает применённое действие импорта.
func (m *StoreMetrics) RecordImportCommitted(action string) {
	m.importCommitted.WithLabelValues(action).Inc()
}
