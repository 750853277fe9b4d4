// Package tables defines the identifier-keyed caller-supplied function
// tables the core treats as opaque dependencies: activation functions,
// sensor sync-function sources, and actuator output hooks. synaptica
// never bakes a function into a record; records only ever carry the id,
// and these tables resolve ids to callables at materialisation time.
// Deliberately not a package-level global: a caller supplies a fresh set
// of tables per evolution run.
package tables

import (
	"fmt"

	"synaptica/internal/record"
)

// ActivationFunc computes a neuron's output from its weighted input sum.
type ActivationFunc func(x float64) float64

// NetworkId identifies one live network for sync-function binding and
// fitness scoring.
type NetworkId string

// SyncFunc produces one sensor reading: a sequence of floats.
type SyncFunc func() []float64

// SyncFunctionSource binds a sync function to a specific network,
// allowing per-network data binding (e.g. each network in a population
// reading from its own slice of a training set).
type SyncFunctionSource func(NetworkId) SyncFunc

// OutputHook receives one actuator's aggregated output for a think cycle.
type OutputHook func(value float64)

// ActivationFunctions maps activation_function_id -> ActivationFunc.
type ActivationFunctions map[string]ActivationFunc

// SyncFunctionSources maps sync_function_id -> SyncFunctionSource.
type SyncFunctionSources map[string]SyncFunctionSource

// OutputHookIds is the set of output_hook_id values the caller has
// declared usable; the scheduler wraps each id into a closure over a
// score keeper at materialisation time, so no function value is stored
// here — only the identifiers AddActuator mutations may draw from.
type OutputHookIds []string

func (a ActivationFunctions) Lookup(id string) (ActivationFunc, error) {
	fn, ok := a[id]
	if !ok {
		return nil, fmt.Errorf("activation function not found: %s", id)
	}
	return fn, nil
}

func (s SyncFunctionSources) Lookup(id string) (SyncFunctionSource, error) {
	src, ok := s[id]
	if !ok {
		return nil, fmt.Errorf("sync function source not found: %s", id)
	}
	return src, nil
}

// Ids returns the sorted keys of an ActivationFunctions table; several
// mutation kinds draw a uniformly random id from this set.
func (a ActivationFunctions) Ids() []string { return sortedKeys(a) }

// Ids returns the sorted keys of a SyncFunctionSources table.
func (s SyncFunctionSources) Ids() []string { return sortedKeys(s) }

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

// ValidateAgainst checks that every id a record set references into these
// tables actually resolves, catching a stale mutation or a caller/table
// mismatch before the cortex is constructed.
func ValidateAgainst(nr record.NodeRecords, activations ActivationFunctions, syncs SyncFunctionSources, hooks OutputHookIds) error {
	hookSet := make(map[string]bool, len(hooks))
	for _, id := range hooks {
		hookSet[id] = true
	}

	for _, id := range nr.Ids() {
		node := nr[id]
		switch node.Type.Kind {
		case record.KindNeuron:
			if node.ActivationFunctionID == nil {
				continue
			}
			if _, err := activations.Lookup(*node.ActivationFunctionID); err != nil {
				return fmt.Errorf("node %d: %w", id, err)
			}
		case record.KindSensor:
			if node.SyncFunctionID == nil {
				continue
			}
			if _, err := syncs.Lookup(*node.SyncFunctionID); err != nil {
				return fmt.Errorf("node %d: %w", id, err)
			}
		case record.KindActuator:
			if node.OutputHookID == nil {
				continue
			}
			if !hookSet[*node.OutputHookID] {
				return fmt.Errorf("node %d: output hook not found: %s", id, *node.OutputHookID)
			}
		}
	}
	return nil
}
