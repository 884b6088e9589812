package lace

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"slices"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html"
)

// Engine is the process-scoped state of the templating engine: the
// component Registry, the template filesystem, the cache of compiled
// component base DOMs, and the observability wiring. Construct one with
// NewEngine, register components, then Compile views. An Engine must be
// fully populated before views are rendered; registration and Compile
// are startup-time operations, Render is the only thing that should run
// once requests are flowing.
type Engine struct {
	registry  *Registry
	templates fs.FS
	tracer    trace.Tracer
	metrics   *engineMetrics

	mu    sync.RWMutex
	bases map[string]*Document
}

// Option configures an Engine.
type Option func(*engineConfig)

type engineConfig struct {
	registry       *Registry
	templates      fs.FS
	tracerProvider trace.TracerProvider
	metrics        metricsConfig
}

// WithTemplates supplies the fs.FS that TemplateFiler components load
// their templates from.
func WithTemplates(templates fs.FS) Option {
	return func(cfg *engineConfig) {
		cfg.templates = templates
	}
}

// WithRegistry supplies a pre-populated Registry instead of the empty
// one the Engine would otherwise create.
func WithRegistry(registry *Registry) Option {
	return func(cfg *engineConfig) {
		cfg.registry = registry
	}
}

// WithTracerProvider sets the TracerProvider spans are created from.
// The default is the global otel provider.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(cfg *engineConfig) {
		cfg.tracerProvider = provider
	}
}

// NewEngine returns an Engine ready for component registration.
func NewEngine(opts ...Option) *Engine {
	cfg := engineConfig{
		metrics: defaultMetricsConfig(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.registry == nil {
		cfg.registry = NewRegistry()
	}
	if cfg.tracerProvider == nil {
		cfg.tracerProvider = otel.GetTracerProvider()
	}
	return &Engine{
		registry:  cfg.registry,
		templates: cfg.templates,
		tracer:    cfg.tracerProvider.Tracer(tracerName),
		metrics:   newEngineMetrics(cfg.metrics),
		bases:     map[string]*Document{},
	}
}

// Register associates a component tag with a Factory on the Engine's
// Registry.
func (e *Engine) Register(tag string, factory Factory) {
	e.registry.Register(tag, factory)
}

// AddProvider appends a Provider to the Engine's Registry.
func (e *Engine) AddProvider(provider Provider) {
	e.registry.AddProvider(provider)
}

// Registry returns the Engine's Registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// View is a compiled view definition: an immutable base DOM plus the
// Engine that knows how to render it. The base DOM is built once, by
// Compile, and only ever read through cloning afterwards, so a single
// View can serve any number of concurrent Renders.
type View struct {
	engine *Engine
	key    string
	base   *Document
}

// Key returns the view's name, as used in traces, metrics, and logs.
func (v *View) Key() string {
	return v.key
}

// BaseDOM returns a copy of the view's base DOM. The copy is the
// caller's to mutate; the base itself stays immutable.
func (v *View) BaseDOM() *Document {
	return v.base.Clone()
}

// Compile builds a View from a view definition. The definition's
// template is parsed, its PrepareDOM hook (if any) runs against the
// fresh base DOM, every view-* tag is discovered and resolved
// transitively, attach-style components run their one-time hooks, and
// the finished base DOM is published. Compile failures are fatal by
// design: no partially initialized View is ever returned.
func (e *Engine) Compile(ctx context.Context, root Component) (*View, error) {
	key := viewKey(ctx, root)
	ctx, span := e.tracer.Start(ctx, "lace.Compile", trace.WithAttributes(
		attribute.String("lace.view", key),
	))
	defer span.End()
	start := time.Now()

	base, err := e.compileBase(ctx, root, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error compiling view %q: %w", key, err)
	}
	e.metrics.observeCompile(key, time.Since(start))
	logger(ctx).DebugContext(ctx, "compiled view", "view", key)
	return &View{engine: e, key: key, base: base}, nil
}

// Render clones the view's base DOM, runs the model's ProcessDOM hook
// (if the model implements RequestRenderer), renders and splices every
// remaining component tag depth-first, and serializes the result. The
// clone is exclusively owned by this call; concurrent Renders of the
// same View never share mutable state.
func (v *View) Render(ctx context.Context, model any) (string, error) {
	ctx, span := v.engine.tracer.Start(ctx, "lace.Render", trace.WithAttributes(
		attribute.String("lace.view", v.key),
	))
	defer span.End()
	start := time.Now()

	out, err := v.render(ctx, model)
	v.engine.metrics.observeRender(v.key, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("error rendering view %q: %w", v.key, err)
	}
	return out, nil
}

// RenderTo renders the view and writes the result to the passed Writer.
func (v *View) RenderTo(ctx context.Context, out io.Writer, model any) error {
	rendered, err := v.Render(ctx, model)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(out, rendered); err != nil {
		return fmt.Errorf("error writing rendered view %q: %w", v.key, err)
	}
	return nil
}

func (v *View) render(ctx context.Context, model any) (string, error) {
	dom := v.base.Clone()
	if renderer, ok := model.(RequestRenderer); ok {
		if err := renderer.ProcessDOM(ctx, dom); err != nil {
			return "", fmt.Errorf("error processing view DOM: %w", err)
		}
	}
	if err := v.engine.renderComponents(ctx, dom, model, nil); err != nil {
		return "", err
	}
	return dom.HTML()
}

// compileBase builds a component's or view's base DOM: parse the
// template, run PrepareDOM, then resolve every component tag it
// declares. stack is the chain of tags currently being compiled, for
// cycle detection.
func (e *Engine) compileBase(ctx context.Context, comp Component, stack []string) (*Document, error) {
	src, err := e.componentTemplate(ctx, comp)
	if err != nil {
		return nil, err
	}
	dom, err := ParseDocument(src)
	if err != nil {
		return nil, fmt.Errorf("error parsing template for %T: %w", comp, err)
	}
	if mutator, ok := comp.(StartupMutator); ok {
		if err := mutator.PrepareDOM(ctx, dom); err != nil {
			return nil, fmt.Errorf("error preparing DOM for %T: %w", comp, err)
		}
	}
	if err := e.resolveStartup(ctx, dom, stack); err != nil {
		return nil, err
	}
	return dom, nil
}

// componentTemplate surfaces a component's template source, from its
// TemplateFile within the Engine's template fs.FS if it implements
// TemplateFiler, from its Template method otherwise.
func (e *Engine) componentTemplate(ctx context.Context, comp Component) (string, error) {
	if filer, ok := comp.(TemplateFiler); ok {
		path := filer.TemplateFile(ctx)
		if e.templates == nil {
			return "", fmt.Errorf("%w: %T names template file %q but the Engine has no template fs.FS; use WithTemplates", ErrNoTemplate, comp, path)
		}
		contents, err := fs.ReadFile(e.templates, path)
		if err != nil {
			return "", fmt.Errorf("error reading template %q for %T: %w", path, comp, err)
		}
		return string(contents), nil
	}
	if templater, ok := comp.(Templater); ok {
		return templater.Template(ctx), nil
	}
	return "", fmt.Errorf("%w: %T implements neither Templater nor TemplateFiler", ErrNoTemplate, comp)
}

// resolveStartup walks a freshly parsed base DOM and resolves every
// component tag in it, pre-order. Attach-style components run their
// one-time hooks here and their tags are consumed; everything else has
// its own base DOM compiled and cached, and its tag left in place for
// per-request rendering.
func (e *Engine) resolveStartup(ctx context.Context, dom *Document, stack []string) error {
	// tags that stay in the tree for per-request rendering shouldn't
	// be visited twice, and overlay hooks can move them around, so
	// completion is tracked per node rather than positionally.
	done := map[*html.Node]bool{}
	for {
		raw := firstComponentTag(dom.root, done)
		if raw == nil {
			return nil
		}
		done[raw] = true
		node := &Node{doc: dom, raw: raw}
		tag := raw.Data
		if slices.Contains(stack, tag) {
			return cycleError(stack, tag)
		}
		factory, err := e.registry.Resolve(ctx, tag)
		if err != nil {
			return err
		}
		attrs, kinds, err := e.bindTagAttrs(ctx, node, nil, dom)
		if err != nil {
			return err
		}
		instance, err := factory(ctx, attrs)
		if err != nil {
			return fmt.Errorf("error constructing component <%s>: %w", tag, err)
		}
		if err := checkRequired(ctx, instance, tag, attrs, kinds, true); err != nil {
			return err
		}
		base, err := e.componentBaseFor(ctx, tag, instance, stack)
		if err != nil {
			return err
		}
		if attacher, ok := instance.(Attacher); ok {
			if err := attacher.OnComponentAdd(ctx, base.Clone(), dom); err != nil {
				return fmt.Errorf("error attaching component <%s>: %w", tag, err)
			}
			// the hook usually consumes the tag (an overlay discards
			// it wholesale); if it's still in the tree, drop it.
			if node.owned() == nil {
				if err := node.Remove(); err != nil {
					return err
				}
			}
		}
	}
}

// renderComponents walks a request DOM depth-first and splices every
// component tag, replacing the tag node with the component's rendered
// fragment while preserving sibling order. model is the calling
// component's data: the view's model at the top level, the containing
// component instance inside a fragment.
func (e *Engine) renderComponents(ctx context.Context, dom *Document, model any, stack []string) error {
	done := map[*html.Node]bool{}
	for {
		raw := firstComponentTag(dom.root, done)
		if raw == nil {
			return nil
		}
		done[raw] = true
		node := &Node{doc: dom, raw: raw}
		tag := raw.Data
		if slices.Contains(stack, tag) {
			return cycleError(stack, tag)
		}
		factory, err := e.registry.Resolve(ctx, tag)
		if err != nil {
			return err
		}
		attrs, kinds, err := e.bindTagAttrs(ctx, node, model, dom)
		if err != nil {
			return err
		}
		instance, err := factory(ctx, attrs)
		if err != nil {
			return fmt.Errorf("error constructing component <%s>: %w", tag, err)
		}
		if err := checkRequired(ctx, instance, tag, attrs, kinds, false); err != nil {
			return err
		}
		base, err := e.componentBaseFor(ctx, tag, instance, stack)
		if err != nil {
			return err
		}
		frag := base.Clone()
		if attacher, ok := instance.(Attacher); ok {
			// attach-style components normally run at Compile time;
			// one showing up here means a per-request hook injected
			// its tag, so it gets the same treatment against the
			// request DOM.
			if err := attacher.OnComponentAdd(ctx, frag, dom); err != nil {
				return fmt.Errorf("error attaching component <%s>: %w", tag, err)
			}
			if node.owned() == nil {
				if err := node.Remove(); err != nil {
					return err
				}
			}
			continue
		}
		if renderer, ok := instance.(RequestRenderer); ok {
			if err := renderer.ProcessDOM(ctx, frag); err != nil {
				return fmt.Errorf("error processing component <%s>: %w", tag, err)
			}
		}
		if err := e.renderComponents(ctx, frag, instance, append(stack, tag)); err != nil {
			return err
		}
		if err := node.ReplaceWith(frag); err != nil {
			return err
		}
	}
}

// componentBaseFor returns the cached base DOM for a component tag,
// compiling and caching it from the passed instance's template on first
// use. Compile resolves the whole component tree transitively, so in
// the common case every tag is cached before the first request; lazy
// compilation here only fires for tags injected dynamically by
// per-request hooks.
func (e *Engine) componentBaseFor(ctx context.Context, tag string, instance Component, stack []string) (*Document, error) {
	e.mu.RLock()
	base, ok := e.bases[tag]
	e.mu.RUnlock()
	if ok {
		return base, nil
	}
	base, err := e.compileBase(ctx, instance, append(stack, tag))
	if err != nil {
		return nil, fmt.Errorf("error compiling component <%s>: %w", tag, err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if cached, ok := e.bases[tag]; ok {
		return cached, nil
	}
	e.bases[tag] = base
	logger(ctx).DebugContext(ctx, "compiled component", "tag", tag)
	return base, nil
}

// bindTagAttrs resolves a component tag's declared attributes plus the
// implicit content binding. The content binding is computed first, from
// a copy of the tag's inner DOM, so declared back-reference bindings
// still see the original tree. It returns the resolved attributes and
// each declared attribute's binding kind, which required-attribute
// enforcement needs to tell static bindings from per-request ones.
func (e *Engine) bindTagAttrs(ctx context.Context, node *Node, model any, parent *Document) (Attrs, map[string]bindingKind, error) {
	attrs := Attrs{}
	kinds := map[string]bindingKind{}
	if node.raw.FirstChild != nil {
		content := &html.Node{Type: html.DocumentNode}
		for child := node.raw.FirstChild; child != nil; child = child.NextSibling {
			content.AppendChild(cloneTree(child))
		}
		attrs[ContentAttr] = FragmentValue(&Document{root: content})
		kinds[ContentAttr] = bindingLiteral
	}
	for _, attr := range node.raw.Attr {
		val, err := resolveBinding(attr.Val, model, parent)
		if err != nil {
			return nil, nil, fmt.Errorf("error resolving attribute %q of <%s>: %w", attr.Key, node.raw.Data, err)
		}
		attrs[attr.Key] = val
		kinds[attr.Key] = classifyBinding(attr.Val)
	}
	return attrs, kinds, nil
}

// checkRequired enforces a component's RequiredAttrs declaration. At
// startup only statically declared bindings are enforced; $.path
// bindings and undeclared attributes wait for a request, when there's a
// model that could supply them.
func checkRequired(ctx context.Context, instance Component, tag string, attrs Attrs, kinds map[string]bindingKind, startup bool) error {
	requirer, ok := instance.(AttrRequirer)
	if !ok {
		return nil
	}
	for _, name := range requirer.RequiredAttrs(ctx) {
		if attrs.Has(name) {
			continue
		}
		kind, declared := kinds[name]
		if startup && (!declared || !kind.static()) {
			continue
		}
		if declared && (kind == bindingSelector || kind == bindingCollection) {
			return fmt.Errorf("%w: required attribute %q of <%s>", ErrSelectorNotFound, name, tag)
		}
		return fmt.Errorf("%w: %q of <%s>", ErrMissingAttribute, name, tag)
	}
	return nil
}

// firstComponentTag returns the first element in pre-order whose tag
// carries the ComponentTagPrefix and that hasn't been handled yet.
func firstComponentTag(node *html.Node, done map[*html.Node]bool) *html.Node {
	if node.Type == html.ElementNode && strings.HasPrefix(node.Data, ComponentTagPrefix) && !done[node] {
		return node
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if found := firstComponentTag(child, done); found != nil {
			return found
		}
	}
	return nil
}

func cycleError(stack []string, tag string) error {
	chain := strings.Join(append(slices.Clone(stack), tag), " -> ")
	return fmt.Errorf("%w: %s", ErrComponentCycle, chain)
}

func viewKey(ctx context.Context, comp Component) string {
	if keyer, ok := comp.(Keyer); ok {
		return keyer.Key(ctx)
	}
	return fmt.Sprintf("%T", comp)
}
