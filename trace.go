package lace

// tracerName is the instrumentation scope name Engine spans are created
// under. Spans are emitted for Compile (lace.Compile) and Render
// (lace.Render), carrying the view key as lace.view; failures are
// recorded on the span with an error status.
const tracerName = "impractical.co/lace"
