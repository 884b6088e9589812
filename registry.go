package lace

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// ComponentTagPrefix is the prefix every component tag carries. A tag
// like <view-form-input> names the component whose identifier is
// FormInput.
const ComponentTagPrefix = "view-"

// Provider is an interface for convention-based component lookup. When
// a tag has no explicit registration, the Registry derives an identifier
// from the tag name (see ComponentIdent) and asks each Provider for it
// in registration order. Providers are typically backed by whatever the
// application uses to enumerate its component types.
type Provider interface {
	// ProvideComponent returns the Factory for the passed identifier,
	// and whether the Provider knows the identifier at all.
	ProvideComponent(ctx context.Context, ident string) (Factory, bool)
}

// Registry maps component tag names to the Factories that construct
// them. Explicit registrations always win over Provider lookups.
//
// A Registry is populated during startup and read-only afterwards. The
// mutex only matters during population; steady-state resolution is
// all reads.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	providers []Provider
}

// NewRegistry returns an empty Registry ready for registrations.
func NewRegistry() *Registry {
	return &Registry{
		factories: map[string]Factory{},
	}
}

// Register associates a component tag with a Factory, replacing any
// previous registration for that tag. The tag may be passed with or
// without the ComponentTagPrefix.
func (r *Registry) Register(tag string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[normalizeTag(tag)] = factory
}

// AddProvider appends a Provider to the convention-based fallback chain.
func (r *Registry) AddProvider(provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers = append(r.providers, provider)
}

// Resolve returns the Factory for the passed tag. Explicit
// registrations are checked first, then each Provider in order, using
// the identifier derived from the tag. If nothing matches, Resolve
// returns an error wrapping ErrUnknownComponent.
func (r *Registry) Resolve(ctx context.Context, tag string) (Factory, error) {
	tag = normalizeTag(tag)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if factory, ok := r.factories[tag]; ok {
		return factory, nil
	}
	ident := ComponentIdent(tag)
	for _, provider := range r.providers {
		if factory, ok := provider.ProvideComponent(ctx, ident); ok {
			return factory, nil
		}
	}
	return nil, fmt.Errorf("%w: <%s> (identifier %q)", ErrUnknownComponent, tag, ident)
}

// ComponentIdent derives a component identifier from a tag name: the
// ComponentTagPrefix is stripped, the rest is split on - and _, each
// segment gets an upper-case initial, and the segments are joined. So
// view-form-input and view-form_input both name FormInput.
func ComponentIdent(tag string) string {
	tag = strings.TrimPrefix(normalizeTag(tag), ComponentTagPrefix)
	segments := strings.FieldsFunc(tag, func(r rune) bool {
		return r == '-' || r == '_'
	})
	var buf strings.Builder
	for _, segment := range segments {
		buf.WriteString(strings.ToUpper(segment[:1]))
		buf.WriteString(segment[1:])
	}
	return buf.String()
}

// ComponentTag derives the tag name for a component identifier: each
// upper-case letter starts a new lower-cased segment, segments are
// joined with -, and the ComponentTagPrefix is prepended. So FormInput
// becomes view-form-input. It's the inverse of ComponentIdent for
// identifiers without consecutive capitals.
func ComponentTag(ident string) string {
	var buf strings.Builder
	buf.WriteString(ComponentTagPrefix)
	for pos, r := range ident {
		if r >= 'A' && r <= 'Z' {
			if pos > 0 {
				buf.WriteByte('-')
			}
			buf.WriteRune(r + ('a' - 'A'))
			continue
		}
		buf.WriteRune(r)
	}
	return buf.String()
}

func normalizeTag(tag string) string {
	tag = strings.ToLower(tag)
	if !strings.HasPrefix(tag, ComponentTagPrefix) {
		return ComponentTagPrefix + tag
	}
	return tag
}
