package lace_test

import (
	"context"
	"errors"
	"testing"

	"impractical.co/lace"
)

type registryComponent struct {
	name string
}

func (r registryComponent) Template(_ context.Context) string {
	return "<p>" + r.name + "</p>"
}

func factoryFor(name string) lace.Factory {
	return func(_ context.Context, _ lace.Attrs) (lace.Component, error) {
		return registryComponent{name: name}, nil
	}
}

type mapProvider map[string]lace.Factory

func (m mapProvider) ProvideComponent(_ context.Context, ident string) (lace.Factory, bool) {
	factory, ok := m[ident]
	return factory, ok
}

func resolveName(t *testing.T, registry *lace.Registry, tag string) string {
	t.Helper()
	factory, err := registry.Resolve(context.Background(), tag)
	if err != nil {
		t.Fatalf("unexpected error resolving %q: %v", tag, err)
	}
	instance, err := factory(context.Background(), lace.Attrs{})
	if err != nil {
		t.Fatalf("unexpected error constructing %q: %v", tag, err)
	}
	comp, ok := instance.(registryComponent)
	if !ok {
		t.Fatalf("unexpected instance type %T for %q", instance, tag)
	}
	return comp.name
}

func TestRegistry_resolve(t *testing.T) {
	t.Parallel()
	registry := lace.NewRegistry()
	registry.Register("input", factoryFor("explicit-input"))
	registry.AddProvider(mapProvider{
		"Input":     factoryFor("provided-input"),
		"FormInput": factoryFor("provided-form-input"),
	})

	// tags normalize, with or without the prefix
	if got := resolveName(t, registry, "view-input"); got != "explicit-input" {
		t.Errorf("expected explicit registration to win, got %q", got)
	}
	if got := resolveName(t, registry, "input"); got != "explicit-input" {
		t.Errorf("expected prefixless tag to normalize, got %q", got)
	}

	// convention fallback derives the identifier
	if got := resolveName(t, registry, "view-form-input"); got != "provided-form-input" {
		t.Errorf("expected provider fallback, got %q", got)
	}
	if got := resolveName(t, registry, "view-form_input"); got != "provided-form-input" {
		t.Errorf("expected snake_case tag to derive the same identifier, got %q", got)
	}

	_, err := registry.Resolve(context.Background(), "view-nope")
	if !errors.Is(err, lace.ErrUnknownComponent) {
		t.Errorf("expected error wrapping ErrUnknownComponent, got %v", err)
	}
}

func TestRegistry_deterministic(t *testing.T) {
	t.Parallel()
	registry := lace.NewRegistry()
	registry.Register("input", factoryFor("one"))
	first := resolveName(t, registry, "view-input")
	second := resolveName(t, registry, "view-input")
	if first != second {
		t.Errorf("resolution not deterministic: %q then %q", first, second)
	}
}

func TestComponentIdent(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"view-input":      "Input",
		"view-form-input": "FormInput",
		"view-form_input": "FormInput",
		"input":           "Input",
		"view-a-b-c":      "ABC",
	}
	for tag, want := range cases {
		if got := lace.ComponentIdent(tag); got != want {
			t.Errorf("ComponentIdent(%q) = %q, want %q", tag, got, want)
		}
	}
}

func TestComponentTag(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"Input":     "view-input",
		"FormInput": "view-form-input",
		"Master":    "view-master",
	}
	for ident, want := range cases {
		if got := lace.ComponentTag(ident); got != want {
			t.Errorf("ComponentTag(%q) = %q, want %q", ident, got, want)
		}
	}
}
