package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/MrWong99/readalong/pkg/provider/scorer"
	"github.com/MrWong99/readalong/pkg/provider/tts"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// provider type. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	tts    map[string]func(ProviderEntry) (tts.Provider, error)
	scorer map[string]func(ProviderEntry) (scorer.Provider, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		tts:    make(map[string]func(ProviderEntry) (tts.Provider, error)),
		scorer: make(map[string]func(ProviderEntry) (scorer.Provider, error)),
	}
}

// RegisterTTS registers a TTS provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterTTS(name string, factory func(ProviderEntry) (tts.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tts[name] = factory
}

// RegisterScorer registers a scorer provider factory under name.
func (r *Registry) RegisterScorer(name string, factory func(ProviderEntry) (scorer.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scorer[name] = factory
}

// CreateTTS instantiates a TTS provider using the factory registered under entry.Name.
// Returns [ErrProviderNotRegistered] if no factory has been registered for that name.
func (r *Registry) CreateTTS(entry ProviderEntry) (tts.Provider, error) {
	r.mu.RLock()
	factory, ok := r.tts[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: tts/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateScorer instantiates a scorer provider using the factory registered under entry.Name.
func (r *Registry) CreateScorer(entry ProviderEntry) (scorer.Provider, error) {
	r.mu.RLock()
	factory, ok := r.scorer[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: scorer/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}
