package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	metric := &dto.Metric{}
	if err := c.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	return metric.Counter.GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	metric := &dto.Metric{}
	if err := g.Write(metric); err != nil {
		t.Fatalf("failed to write gauge: %v", err)
	}
	return metric.Gauge.GetValue()
}

func TestStoreMetrics_Repository(t *testing.T) {
	m := NewStoreMetricsWithRegisterer(prometheus.NewRegistry())

	m.RecordMutation("orders", "upsert")
	m.RecordMutation("orders", "upsert")
	m.RecordMutation("products", "remove")
	m.RecordPersistFailure("orders")
	m.RecordLoadFallback("products", "corrupt")
	m.SetCollectionSize("products", 5)
	m.SetCollectionSize("products", 4)

	if got := counterValue(t, m.mutations.WithLabelValues("orders", "upsert")); got != 2 {
		t.Errorf("expected 2 order upserts, got %f", got)
	}
	if got := counterValue(t, m.mutations.WithLabelValues("products", "remove")); got != 1 {
		t.Errorf("expected 1 product removal, got %f", got)
	}
	if got := counterValue(t, m.persistFailures.WithLabelValues("orders")); got != 1 {
		t.Errorf("expected 1 persist failure, got %f", got)
	}
	if got := counterValue(t, m.loadFallbacks.WithLabelValues("products", "corrupt")); got != 1 {
		t.Errorf("expected 1 fallback, got %f", got)
	}
	if got := gaugeValue(t, m.collectionSize.WithLabelValues("products")); got != 4 {
		t.Errorf("expected size 4, got %f", got)
	}
}

func TestStoreMetrics_Import(t *testing.T) {
	m := NewStoreMetricsWithRegisterer(prometheus.NewRegistry())

	m.RecordImportParsed(2, 2)
	m.RecordImportParsed(3, 0)
	m.RecordImportCommitted("merge")

	if got := counterValue(t, m.importParsed); got != 5 {
		t.Errorf("expected 5 parsed items, got %f", got)
	}
	if got := counterValue(t, m.importSkipped); got != 2 {
		t.Errorf("expected 2 skipped items, got %f", got)
	}
	if got := counterValue(t, m.importCommitted.WithLabelValues("merge")); got != 1 {
		t.Errorf("expected 1 merge commit, got %f", got)
	}
}

func TestStoreMetrics_ReuseRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewStoreMetricsWithRegisterer(reg)
	second := NewStoreMetricsWithRegisterer(reg)

	first.RecordMutation("orders", "clear")

	if got := counterValue(t, second.mutations.WithLabelValues("orders", "clear")); got != 1 {
		t.Errorf("expected shared collector, got %f", got)
	}
}
