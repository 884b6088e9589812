package lace

import "errors"

var (
	// ErrParse is returned when a template can't be parsed into a
	// Document, e.g. because it's empty.
	ErrParse = errors.New("error parsing template")

	// ErrInvalidSelector is returned when a selector string passed to
	// Find or FindFirst, or used in a back-reference binding, isn't a
	// valid CSS selector.
	ErrInvalidSelector = errors.New("invalid selector")

	// ErrNoTemplate is returned when a component supplies no template; a
	// component must implement either Templater or TemplateFiler.
	ErrNoTemplate = errors.New("component has no template")

	// ErrUnknownComponent is returned when a component tag has no
	// registered factory and no Provider can supply one.
	ErrUnknownComponent = errors.New("no component registered for tag")

	// ErrSelectorNotFound is returned when a required selector-based
	// binding, or a call to FindFirst, matches nothing.
	ErrSelectorNotFound = errors.New("selector matched no nodes")

	// ErrMissingAttribute is returned when a required attribute binding
	// has no resolvable value, e.g. a $.path binding whose path doesn't
	// exist on the model.
	ErrMissingAttribute = errors.New("missing required attribute")

	// ErrOwnership is returned when a mutation mixes nodes from two
	// unrelated Documents. Nodes move between Documents by being
	// detached from one tree and attached to the other; a Node handle
	// that's gone stale because the node it points at now lives in a
	// different tree can't be used to mutate either tree.
	ErrOwnership = errors.New("node belongs to a different document")

	// ErrComponentCycle is returned when a component tag transitively
	// includes itself. It always indicates a misconfiguration of the
	// component templates involved and is detected by tracking the
	// stack of tags being resolved.
	ErrComponentCycle = errors.New("component cycle detected")

	// ErrResourceCycle is returned when a dependency cycle between head
	// resources is found. It always indicates a misconfiguration of the
	// resource ordering constraints, and means that the
	// RelationCalculator on a HeadResource is problematic.
	ErrResourceCycle = errors.New("resource cycle detected")
)
