package signals

import (
	"sort"

	"github.com/ZanzyTHEbar/creative-scorer/internal/errors"
)

// Registry is the flat, read-only signal table for one analysis run
type Registry struct {
	signals map[string]Signal
}

// NewRegistry folds the three layers into one table keyed by signal name.
// Issues describe readings that were dropped or overridden.
func NewRegistry(in Input) (*Registry, []errors.Issue) {
	return NewPreprocessor().Build(in)
}

// Build folds the layers using this preprocessor
func (p *Preprocessor) Build(in Input) (*Registry, []errors.Issue) {
	reg := &Registry{signals: make(map[string]Signal)}
	var issues []errors.Issue

	for _, layer := range Layers {
		readings := in.Layer(layer)
		names := make([]string, 0, len(readings))
		for name := range readings {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			sig, issue := p.Normalize(name, layer, readings[name])
			if issue != nil {
				issues = append(issues, *issue)
				continue
			}
			if prev, ok := reg.signals[name]; ok {
				issues = append(issues, errors.NewIssue(errors.KindDuplicateSignal,
					"%s: %s reading replaced %s reading", name, layer, prev.Layer))
			}
			reg.signals[name] = sig
		}
	}

	return reg, issues
}

// FromSignals builds a registry from already normalized signals
func FromSignals(sigs ...Signal) *Registry {
	reg := &Registry{signals: make(map[string]Signal, len(sigs))}
	for _, s := range sigs {
		reg.signals[s.Name] = s
	}
	return reg
}

// Get returns the signal with the given name
func (r *Registry) Get(name string) (Signal, bool) {
	s, ok := r.signals[name]
	return s, ok
}

// Len returns the number of signals
func (r *Registry) Len() int {
	return len(r.signals)
}

// Names returns all signal names in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.signals))
	for name := range r.signals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Signals returns all signals sorted by name
func (r *Registry) Signals() []Signal {
	out := make([]Signal, 0, len(r.signals))
	for _, name := range r.Names() {
		out = append(out, r.signals[name])
	}
	return out
}

// Values returns a flat name to value map
func (r *Registry) Values() map[string]float64 {
	out := make(map[string]float64, len(r.signals))
	for name, s := range r.signals {
		out[name] = s.Value
	}
	return out
}

// CountByLayer returns the number of signals per layer
func (r *Registry) CountByLayer() map[Layer]int {
	counts := make(map[Layer]int, len(Layers))
	for _, l := range Layers {
		counts[l] = 0
	}
	for _, s := range r.signals {
		counts[s.Layer]++
	}
	return counts
}
