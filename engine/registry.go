// Package engine provides a named registry of estimator instances, so an
// orchestrator can fetch the same Olken/SHARDS++/CounterStacks++/WSS
// instance back for a given trace/config pair instead of constructing a
// fresh one on every lookup. Mirrors the cache package's Manager.
package engine

import (
	"fmt"
	"sync"

	"github.com/cachesight/wssmrc/config"
	"github.com/cachesight/wssmrc/mrc"
	"github.com/cachesight/wssmrc/wss"
)

// Registry holds one estimator instance per name, plus the config.Engine
// each was (or will be) built from.
type Registry struct {
	instances sync.Map // name -> interface{} (one of the estimator types below)
	configs   map[string]config.Engine
	configMu  sync.RWMutex
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{configs: make(map[string]config.Engine)}
}

// GlobalRegistry is a process-wide registry, mirroring the cache package's
// GlobalManager convention for callers that don't need isolation.
var GlobalRegistry = NewRegistry()

// RegisterConfig associates name with cfg, which later Get* calls use to
// construct that name's instance on first access. Registering twice is an
// error, also after RemoveInstance, which keeps the registered config.
func (r *Registry) RegisterConfig(name string, cfg config.Engine) error {
	r.configMu.Lock()
	defer r.configMu.Unlock()
	if _, exists := r.configs[name]; exists {
		return fmt.Errorf("engine: config %q already registered", name)
	}
	r.configs[name] = cfg
	return nil
}

func (r *Registry) configFor(name string) config.Engine {
	r.configMu.RLock()
	defer r.configMu.RUnlock()
	if cfg, ok := r.configs[name]; ok {
		return cfg
	}
	return config.DefaultPreset()
}

// GetOlken returns name's Olken instance, constructing it from the
// registered (or default) config on first access.
func (r *Registry) GetOlken(name string) (*mrc.Olken, error) {
	if v, ok := r.instances.Load(name); ok {
		if o, ok := v.(*mrc.Olken); ok {
			return o, nil
		}
		return nil, fmt.Errorf("engine: %q already registered as a different estimator type", name)
	}
	cfg := r.configFor(name)
	o := mrc.NewOlken(mrc.OlkenConfig{
		BucketWidth: cfg.BucketWidthBytes,
		MaxCache:    cfg.MaxCacheBytes,
		MaxDistinct: cfg.MaxDistinctObjects,
		FixedBlock:  cfg.FixedBlockBytes,
	})
	actual, _ := r.instances.LoadOrStore(name, o)
	return actual.(*mrc.Olken), nil
}

// GetShardsFixedRate returns name's SHARDS++ fixed-rate instance.
func (r *Registry) GetShardsFixedRate(name string) (*mrc.ShardsFixedRate, error) {
	if v, ok := r.instances.Load(name); ok {
		if s, ok := v.(*mrc.ShardsFixedRate); ok {
			return s, nil
		}
		return nil, fmt.Errorf("engine: %q already registered as a different estimator type", name)
	}
	cfg := r.configFor(name)
	s := mrc.NewShardsFixedRate(mrc.ShardsFixedRateConfig{
		Rate:        cfg.SamplingRate,
		BucketWidth: cfg.BucketWidthBytes,
		MaxCache:    cfg.MaxCacheBytes,
		MaxDistinct: cfg.MaxDistinctObjects,
		FixedBlock:  cfg.FixedBlockBytes,
		Adjusted:    true,
	})
	actual, _ := r.instances.LoadOrStore(name, s)
	return actual.(*mrc.ShardsFixedRate), nil
}

// GetShardsFixedSize returns name's SHARDS++ fixed-size instance.
func (r *Registry) GetShardsFixedSize(name string) (*mrc.ShardsFixedSize, error) {
	if v, ok := r.instances.Load(name); ok {
		if s, ok := v.(*mrc.ShardsFixedSize); ok {
			return s, nil
		}
		return nil, fmt.Errorf("engine: %q already registered as a different estimator type", name)
	}
	cfg := r.configFor(name)
	s := mrc.NewShardsFixedSize(mrc.ShardsFixedSizeConfig{
		SMax:        cfg.SampleCap,
		BucketWidth: cfg.BucketWidthBytes,
		MaxCache:    cfg.MaxCacheBytes,
		FixedBlock:  cfg.FixedBlockBytes,
	})
	actual, _ := r.instances.LoadOrStore(name, s)
	return actual.(*mrc.ShardsFixedSize), nil
}

// GetCounterStacks returns name's CounterStacks++ instance.
func (r *Registry) GetCounterStacks(name string) (*mrc.CounterStacks, error) {
	if v, ok := r.instances.Load(name); ok {
		if c, ok := v.(*mrc.CounterStacks); ok {
			return c, nil
		}
		return nil, fmt.Errorf("engine: %q already registered as a different estimator type", name)
	}
	cfg := r.configFor(name)
	c, err := mrc.NewCounterStacks(mrc.CounterStacksConfig{
		Precision:    cfg.Precision,
		Capacity:     cfg.CounterCapacity,
		BucketWidth:  cfg.BucketWidthBytes,
		MaxCache:     cfg.MaxCacheBytes,
		Fidelity:     cfg.Fidelity,
		FixedBlock:   cfg.FixedBlockBytes,
		MergeWorkers: cfg.MergeWorkers,
	})
	if err != nil {
		return nil, err
	}
	actual, loaded := r.instances.LoadOrStore(name, c)
	if loaded {
		return actual.(*mrc.CounterStacks), nil
	}
	return c, nil
}

// GetWSS returns name's working-set-size estimator instance.
func (r *Registry) GetWSS(name string, mode wss.Mode) (*wss.Estimator, error) {
	if v, ok := r.instances.Load(name); ok {
		if w, ok := v.(*wss.Estimator); ok {
			return w, nil
		}
		return nil, fmt.Errorf("engine: %q already registered as a different estimator type", name)
	}
	cfg := r.configFor(name)
	w, err := wss.New(wss.Config{
		Precision:       cfg.Precision,
		MinBlock:        cfg.MinBlock,
		MaxBlock:        cfg.MaxBlock,
		FixedBlockBytes: cfg.FixedBlockBytes,
		TTLAware:        true,
		Mode:            mode,
	})
	if err != nil {
		return nil, err
	}
	actual, loaded := r.instances.LoadOrStore(name, w)
	if loaded {
		return actual.(*wss.Estimator), nil
	}
	return w, nil
}

// AllStats collects a Stats() snapshot from every registered instance that
// exposes one, keyed by name.
func (r *Registry) AllStats() map[string]interface{} {
	out := make(map[string]interface{})
	r.instances.Range(func(key, value interface{}) bool {
		name, ok := key.(string)
		if !ok {
			return true
		}
		switch v := value.(type) {
		case *mrc.Olken:
			out[name] = v.Stats()
		case *mrc.ShardsFixedRate:
			out[name] = v.Stats()
		case *mrc.ShardsFixedSize:
			out[name] = v.Stats()
		case *mrc.CounterStacks:
			out[name] = v.Stats()
		}
		return true
	})
	return out
}

// RemoveInstance drops name's instance (but not its registered config), so
// a subsequent Get* call builds a fresh one.
func (r *Registry) RemoveInstance(name string) {
	r.instances.Delete(name)
}
