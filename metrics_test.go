package lace_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"impractical.co/lace"
)

func counterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("unexpected error gathering metrics: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			matched := true
			for _, pair := range metric.GetLabel() {
				if want, ok := labels[pair.GetName()]; ok && want != pair.GetValue() {
					matched = false
					break
				}
			}
			if matched {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestEngine_metrics(t *testing.T) {
	t.Parallel()
	registry := prometheus.NewRegistry()
	engine := lace.NewEngine(lace.WithMetrics(registry))
	view, err := engine.Compile(context.Background(), copyrightView{})
	if err != nil {
		t.Fatalf("unexpected error compiling: %v", err)
	}
	if _, err := view.Render(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error rendering: %v", err)
	}
	got := counterValue(t, registry, "lace_renders_total", map[string]string{
		"view":    view.Key(),
		"outcome": "success",
	})
	if got != 1 {
		t.Errorf("expected 1 successful render recorded, got %v", got)
	}
}

func TestEngine_metricsNamespace(t *testing.T) {
	t.Parallel()
	registry := prometheus.NewRegistry()
	engine := lace.NewEngine(
		lace.WithMetrics(registry),
		lace.WithMetricsNamespace("myapp"),
	)
	view, err := engine.Compile(context.Background(), copyrightView{})
	if err != nil {
		t.Fatalf("unexpected error compiling: %v", err)
	}
	if _, err := view.Render(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error rendering: %v", err)
	}
	got := counterValue(t, registry, "myapp_renders_total", map[string]string{"outcome": "success"})
	if got != 1 {
		t.Errorf("expected 1 successful render recorded under myapp namespace, got %v", got)
	}
}
