package mutate

import (
	"fmt"
	"math/rand"

	"synaptica/internal/record"
)

// Operator applies one mutation kind to a record set, taking the source
// of randomness explicitly since every mutation here is inherently
// probabilistic rather than parameterised ahead of time.
type Operator interface {
	Name() Kind
	Apply(rng *rand.Rand, nr record.NodeRecords, props Properties) (record.NodeRecords, error)
}

type operatorFunc struct {
	name Kind
	fn   func(rng *rand.Rand, nr record.NodeRecords, props Properties) (record.NodeRecords, error)
}

func (o operatorFunc) Name() Kind { return o.name }

func (o operatorFunc) Apply(rng *rand.Rand, nr record.NodeRecords, props Properties) (record.NodeRecords, error) {
	return o.fn(rng, nr, props)
}

var registry = map[Kind]Operator{
	MutateActivationFunction: operatorFunc{MutateActivationFunction, mutateActivationFunction},
	AddBias:                  operatorFunc{AddBias, addBias},
	RemoveBias:               operatorFunc{RemoveBias, removeBias},
	MutateWeights:            operatorFunc{MutateWeights, mutateWeights},
	ResetWeights:             operatorFunc{ResetWeights, resetWeights},
	AddInboundConnection:     operatorFunc{AddInboundConnection, addInboundConnection},
	AddOutboundConnection:    operatorFunc{AddOutboundConnection, addInboundConnection},
	AddNeuron:                operatorFunc{AddNeuron, addNeuron},
	AddNeuronOutSplice:       operatorFunc{AddNeuronOutSplice, addNeuronSplice},
	AddNeuronInSplice:        operatorFunc{AddNeuronInSplice, addNeuronSplice},
	AddSensor:                operatorFunc{AddSensor, addSensor},
	AddActuator:              operatorFunc{AddActuator, addActuator},
	AddSensorLink:            operatorFunc{AddSensorLink, addSensorLink},
	AddActuatorLink:          operatorFunc{AddActuatorLink, addActuatorLink},
	RemoveSensorLink:         operatorFunc{RemoveSensorLink, removeSensorLink},
	RemoveActuatorLink:       operatorFunc{RemoveActuatorLink, removeActuatorLink},
	RemoveInboundConnection:  operatorFunc{RemoveInboundConnection, removeInboundConnection},
	RemoveOutboundConnection: operatorFunc{RemoveOutboundConnection, removeInboundConnection},
	ChangeNeuronLayer:        operatorFunc{ChangeNeuronLayer, changeNeuronLayer},
}

// Resolve looks up the Operator for kind. AddInboundConnection and
// AddOutboundConnection resolve to the same implementation, since the two
// names have identical effects and are kept only as separate probability
// slots. AddNeuronOutSplice and AddNeuronInSplice resolve the same way.
func Resolve(kind Kind) (Operator, error) {
	op, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("unknown mutation kind: %s", kind)
	}
	return op, nil
}
