// Package mutate implements the probabilistic topology/weight editor that
// turns one record.NodeRecords snapshot into another. Every mutation kind
// is an Operator that either edits a cloned record set or reports a
// precondition failure via a sentinel error; the engine resamples a
// different kind or no-ops accordingly rather than treating the failure
// as fatal.
package mutate

import (
	"errors"
	"math"
	"math/rand"

	"synaptica/internal/record"
)

// ErrPreconditionUnmet is the sentinel every Operator returns when its
// chosen precondition cannot be satisfied on the current record set. The
// caller treats this as local and resamples a different mutation kind if
// the set has more than one, else no-ops.
var ErrPreconditionUnmet = errors.New("mutation precondition unmet")

// ErrInvariantViolation is returned for the subset of edits that are
// structurally impossible outright rather than merely inapplicable right
// now, and so cannot be fixed by resampling a different kind.
var ErrInvariantViolation = errors.New("mutation would violate a record-set invariant")

// Kind names one of the mutation operators.
type Kind string

const (
	MutateActivationFunction Kind = "mutate_activation_function"
	AddBias                  Kind = "add_bias"
	RemoveBias               Kind = "remove_bias"
	MutateWeights            Kind = "mutate_weights"
	ResetWeights             Kind = "reset_weights"
	AddInboundConnection     Kind = "add_inbound_connection"
	AddOutboundConnection    Kind = "add_outbound_connection"
	AddNeuron                Kind = "add_neuron"
	AddNeuronOutSplice       Kind = "add_neuron_out_splice"
	AddNeuronInSplice        Kind = "add_neuron_in_splice"
	AddSensor                Kind = "add_sensor"
	AddActuator              Kind = "add_actuator"
	AddSensorLink            Kind = "add_sensor_link"
	AddActuatorLink          Kind = "add_actuator_link"
	RemoveSensorLink         Kind = "remove_sensor_link"
	RemoveActuatorLink       Kind = "remove_actuator_link"
	RemoveInboundConnection  Kind = "remove_inbound_connection"
	RemoveOutboundConnection Kind = "remove_outbound_connection"
	ChangeNeuronLayer        Kind = "change_neuron_layer"
)

// Properties is the ordered set of mutation kinds a caller permits, plus
// the id pools AddNeuron/AddSensor/AddActuator draw from.
type Properties struct {
	Mutations     []Kind
	ActivationIds []string
	SyncIds       []string
	OutputHookIds []string
	Learning      record.LearningAlgorithm
}

// ApplyMutationSet runs the mutation-count selection: draw
// k = ceil(u*sqrt(n)) (clamped to at least 1, where n is the node count),
// then apply k mutation kinds, sampled uniformly with replacement from
// props.Mutations, in sequence.
func ApplyMutationSet(rng *rand.Rand, nr record.NodeRecords, props Properties) (record.NodeRecords, error) {
	if len(props.Mutations) == 0 {
		return nr, nil
	}
	n := len(nr)
	if n == 0 {
		return nr, nil
	}

	u := rng.Float64()
	k := int(math.Ceil(u * math.Sqrt(float64(n))))
	if k < 1 {
		k = 1
	}

	current := nr
	for i := 0; i < k; i++ {
		kind := props.Mutations[rng.Intn(len(props.Mutations))]
		next, err := applyWithResample(rng, kind, current, props)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}

// applyWithResample applies kind; on ErrPreconditionUnmet it resamples a
// different kind from the set (tail-recursive retry) when the set has more
// than one member, and no-ops when it has exactly one. Any other error
// (an invariant violation) propagates unchanged and aborts the pass.
func applyWithResample(rng *rand.Rand, kind Kind, nr record.NodeRecords, props Properties) (record.NodeRecords, error) {
	op, err := Resolve(kind)
	if err != nil {
		return nil, err
	}

	result, err := op.Apply(rng, nr, props)
	if err == nil {
		return result, nil
	}
	if !errors.Is(err, ErrPreconditionUnmet) {
		return nil, err
	}
	if len(props.Mutations) <= 1 {
		return nr, nil
	}

	next := props.Mutations[rng.Intn(len(props.Mutations))]
	return applyWithResample(rng, next, nr, props)
}
