package mutate

import (
	"math"
	"math/rand"
	"sort"

	"synaptica/internal/record"
)

func randomNeuron(rng *rand.Rand, nr record.NodeRecords) (*record.NodeRecord, bool) {
	neurons := nr.Neurons()
	if len(neurons) == 0 {
		return nil, false
	}
	return neurons[rng.Intn(len(neurons))], true
}

func randomSensor(rng *rand.Rand, nr record.NodeRecords) (*record.NodeRecord, bool) {
	sensors := nr.Sensors()
	if len(sensors) == 0 {
		return nil, false
	}
	return sensors[rng.Intn(len(sensors))], true
}

func randomActuator(rng *rand.Rand, nr record.NodeRecords) (*record.NodeRecord, bool) {
	actuators := nr.Actuators()
	if len(actuators) == 0 {
		return nil, false
	}
	return actuators[rng.Intn(len(actuators))], true
}

func randomNonActuator(rng *rand.Rand, nr record.NodeRecords) (*record.NodeRecord, bool) {
	var candidates []*record.NodeRecord
	for _, id := range nr.Ids() {
		if n := nr[id]; !n.IsActuator() {
			candidates = append(candidates, n)
		}
	}
	if len(candidates) == 0 {
		return nil, false
	}
	return candidates[rng.Intn(len(candidates))], true
}

func randomNonSensor(rng *rand.Rand, nr record.NodeRecords) (*record.NodeRecord, bool) {
	var candidates []*record.NodeRecord
	for _, id := range nr.Ids() {
		if n := nr[id]; !n.IsSensor() {
			candidates = append(candidates, n)
		}
	}
	if len(candidates) == 0 {
		return nil, false
	}
	return candidates[rng.Intn(len(candidates))], true
}

func randomId(rng *rand.Rand, ids []string) (string, bool) {
	if len(ids) == 0 {
		return "", false
	}
	return ids[rng.Intn(len(ids))], true
}

func uniformSignedHalfPi(rng *rand.Rand) float64 {
	const bound = math.Pi / 2
	return -bound + rng.Float64()*(2*bound)
}

// sensorOutboundCapReached reports whether a sensor may accept no more
// fanout. A nil or zero maximum_vector_length is treated as unbounded:
// both are the same absence of a declared cap.
func sensorOutboundCapReached(sensor *record.NodeRecord, currentCount uint32) bool {
	if sensor.MaximumVectorLength == nil {
		return false
	}
	max := *sensor.MaximumVectorLength
	if max == 0 {
		return false
	}
	return currentCount >= max
}

// syncSensorOutboundCount recomputes a sensor's declared outbound_count
// from the record set's actual fanout and writes it back. Call this after
// any edit that adds, removes, or redirects a sensor-sourced connection.
func syncSensorOutboundCount(nr record.NodeRecords, sensorID record.NodeId) {
	sensor := nr[sensorID]
	sensor.Type = record.SensorType(uint32(len(nr.InboundReferencesTo(sensorID))))
}

// renumberSensorOrder reassigns connection_order densely from 0 across
// every inbound connection currently sourced from sensorID, preserving
// relative order among connections that already carry one and appending
// any newly-added connection last. addInboundConnection, addNeuron,
// addNeuronSplice and removeSensorLink call this before returning,
// keeping connection_order a dense 0..k prefix across every downstream
// owner of that sensor's edges, not just the one mutation touched — the
// invariant record.Validate checks for. addSensor and addSensorLink do not
// call it: they assign the next order and outbound_count directly.
func renumberSensorOrder(nr record.NodeRecords, sensorID record.NodeId) {
	refs := nr.InboundReferencesTo(sensorID)
	sort.SliceStable(refs, func(i, j int) bool {
		vi, vj := uint32(math.MaxUint32), uint32(math.MaxUint32)
		if o := refs[i].Connection.ConnectionOrder; o != nil {
			vi = *o
		}
		if o := refs[j].Connection.ConnectionOrder; o != nil {
			vj = *o
		}
		return vi < vj
	})
	for i, ref := range refs {
		order := uint32(i)
		conn := nr[ref.OwnerId].Inbound[ref.ConnectionId]
		conn.ConnectionOrder = &order
		nr[ref.OwnerId].Inbound[ref.ConnectionId] = conn
	}
	syncSensorOutboundCount(nr, sensorID)
}
