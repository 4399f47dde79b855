// Package search defines the web search adapter used by rango.
//
// Two engines satisfy Engine: the external Bing engine in the bing
// sub-package and the internal StubEngine here. Callers pick one at
// construction time; nothing in this package probes for network access.
package search

import (
	"context"
)

const (
	// EngineBing names the external Bing engine.
	EngineBing = "bing"
	// EngineStub names the internal deterministic engine.
	EngineStub = "stub"
)

// Engine turns a free-text query into an ordered list of results.
//
// Callers must not pass blank queries. Engines never retry, cache, sort
// or de-duplicate, and report every failure synchronously.
type Engine interface {
	// Name returns the identifier of the engine.
	Name() string
	// Search executes the query.
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// StubResult is the single result returned by StubEngine.
var StubResult = SearchResult{
	Title:   "Rango <b>search</b> is running offline",
	Link:    "https://www.tangowithdjango.com/",
	Summary: "The internal search engine returns this fixed result instead of calling Bing.",
}

// StubEngine is the internal engine for environments without network
// access or credentials. It performs no I/O.
type StubEngine struct{}

// NewStubEngine returns a StubEngine.
func NewStubEngine() *StubEngine {
	return &StubEngine{}
}

// Name returns EngineStub.
func (*StubEngine) Name() string {
	return EngineStub
}

// Search returns StubResult regardless of the query.
func (*StubEngine) Search(context.Context, string) ([]SearchResult, error) {
	return []SearchResult{StubResult}, nil
}
