package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rt-stt/rt-stt/internal/asr"
	"github.com/rt-stt/rt-stt/internal/audio"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps backend names to constructor functions for the two
// pluggable surfaces the Supervisor can swap at runtime: the ASR engine
// (set_model) and the audio device (used for the -replay flag and tests).
// It is safe for concurrent use.
type Registry struct {
	mu  sync.RWMutex
	asr map[string]func(ModelConfig) (asr.Engine, error)
	dev map[string]func(AudioConfig) (audio.Device, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		asr: make(map[string]func(ModelConfig) (asr.Engine, error)),
		dev: make(map[string]func(AudioConfig) (audio.Device, error)),
	}
}

// RegisterASR registers an ASR engine factory under name (e.g.
// "whisper-native", "mock").
func (r *Registry) RegisterASR(name string, factory func(ModelConfig) (asr.Engine, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.asr[name] = factory
}

// RegisterAudio registers an audio device factory under name (e.g.
// "replay", "generator").
func (r *Registry) RegisterAudio(name string, factory func(AudioConfig) (audio.Device, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dev[name] = factory
}

// CreateASR instantiates an ASR engine using the factory registered under
// name. Returns [ErrProviderNotRegistered] wrapped with the name if no
// factory was registered.
func (r *Registry) CreateASR(name string, cfg ModelConfig) (asr.Engine, error) {
	r.mu.RLock()
	factory, ok := r.asr[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: asr/%q", ErrProviderNotRegistered, name)
	}
	return factory(cfg)
}

// CreateAudio instantiates an audio device using the factory registered
// under name.
func (r *Registry) CreateAudio(name string, cfg AudioConfig) (audio.Device, error) {
	r.mu.RLock()
	factory, ok := r.dev[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: audio/%q", ErrProviderNotRegistered, name)
	}
	return factory(cfg)
}
