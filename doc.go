// Package lace provides a DOM-based component templating engine. Instead
// of a template language, views are plain HTML documents; all dynamic
// behavior is expressed by code that mutates a parsed DOM.
//
// lace is organized around views and components. A view is an HTML
// template plus hooks: a one-time PrepareDOM hook that adjusts the
// template's parsed DOM at startup, and a per-request ProcessDOM hook
// that adjusts a clone of it for one render. A component is a reusable
// view definition invoked declaratively, by a <view-*> tag in another
// template; the engine resolves the tag to a registered Factory, binds
// the tag's attributes, renders the component's own DOM, and splices the
// result into the caller in the tag's place.
//
// Tag attributes are bindings, resolved against the calling template's
// model and DOM: a plain value is passed verbatim, $.path reads a dotted
// path off the caller's model, \selector pulls node references out of
// the caller's DOM (\selector:content pulls their text), and @name
// collects every matching element. The tag's inner DOM always arrives as
// the implicit content attribute. Layout components use the node-pulling
// forms to run as overlays: their one-time OnComponentAdd hook extracts
// the page's title, head resources, and body, installs them in the
// layout's own template, and replaces the page's DOM outright, fusing
// page and layout into a single base DOM.
//
// Everything expensive happens once, at startup: an Engine compiles each
// view into an immutable base DOM with every one-time hook already
// applied. Rendering a request clones that base, runs the per-request
// hooks against the clone, and serializes it, so any number of requests
// can render the same view concurrently without locking.
package lace
