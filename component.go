package lace

import "context"

// Component is a component instance constructed by a Factory. The engine
// learns what a Component can do through the optional interfaces below:
// its template comes from Templater or TemplateFiler, and its lifecycle
// hooks from StartupMutator, RequestRenderer, and Attacher. A Component
// implementing none of the template interfaces can't be compiled and
// fails with ErrNoTemplate.
type Component any

// Factory constructs a Component instance from its resolved attributes.
// Factories are registered with a Registry (or supplied by a Provider)
// and invoked once per occurrence of the component's tag: at Compile
// time for attach-style components, per render for everything else.
//
// Attributes that couldn't be resolved arrive absent rather than causing
// an error; a Factory that needs an attribute to be present should
// declare it through AttrRequirer instead of failing, so that startup
// resolution can tell a statically missing attribute (fatal at Compile)
// from a per-request one (fatal at Render). A Factory returning an error
// always aborts the phase it ran in.
type Factory func(ctx context.Context, attrs Attrs) (Component, error)

// Templater is the interface for components whose template is an inline
// HTML string.
type Templater interface {
	// Template returns the HTML to parse into this component's base
	// DOM. It must return the same string for the lifetime of the
	// process; the parsed result is cached per tag.
	Template(ctx context.Context) string
}

// TemplateFiler is the interface for components whose template lives in
// a file. The path is resolved against the fs.FS passed to the Engine
// with WithTemplates. If a component implements both Templater and
// TemplateFiler, the file wins.
type TemplateFiler interface {
	// TemplateFile returns the path of the template within the
	// Engine's template fs.FS.
	TemplateFile(ctx context.Context) string
}

// StartupMutator is an interface components and views can implement to
// adjust their own base DOM once, at Compile time, before component tags
// are discovered. The DOM it receives is the one-time base; whatever it
// does is baked in and shared by every subsequent render.
type StartupMutator interface {
	PrepareDOM(ctx context.Context, dom *Document) error
}

// RequestRenderer is an interface components and models can implement to
// adjust a DOM per render. For a view's model, the DOM is the
// request-exclusive clone of the view's base DOM; for a component
// instance, it's a fresh clone of the component's own base DOM, rendered
// before being spliced into the caller.
type RequestRenderer interface {
	ProcessDOM(ctx context.Context, dom *Document) error
}

// Attacher is the interface for attach-style (layout/overlay)
// components. Instead of being rendered and spliced per request, an
// Attacher runs exactly once, at Compile time, against the DOM of the
// view or component that declared its tag. Its attribute bindings are
// resolved against that parent DOM, so back-reference (\selector) and
// collection (@name) bindings are the natural way to call it.
type Attacher interface {
	// OnComponentAdd receives the component's own compiled DOM and the
	// parent's base DOM, and mutates the parent in place. A layout
	// component typically fills self in from its bound attributes and
	// finishes with parent.Overlay(self), replacing the parent's tree
	// with its own.
	OnComponentAdd(ctx context.Context, self, parent *Document) error
}

// AttrRequirer is an interface components can implement to declare which
// of their attributes must resolve to a value. A required attribute that
// resolved absent fails the phase that resolved it: Compile for static
// bindings, Render for $.path bindings.
type AttrRequirer interface {
	RequiredAttrs(ctx context.Context) []string
}

// Keyer is an interface views can implement to name themselves. The key
// labels traces, metrics, and log lines for the view; views that don't
// implement it are labeled with their Go type.
type Keyer interface {
	Key(ctx context.Context) string
}
