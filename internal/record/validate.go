package record

import (
	"errors"
	"fmt"
)

// Sentinel errors for the record-set structural invariants Validate
// checks, each wrapped with node/connection context via fmt.Errorf.
var (
	ErrDanglingReference   = errors.New("inbound connection references an unknown node")
	ErrSensorHasInbound    = errors.New("sensor node has inbound connections")
	ErrActuatorIsReferenced = errors.New("actuator node is referenced as a from_node")
	ErrFunctionIdMismatch  = errors.New("function id presence does not match node kind")
	ErrSensorFanoutExceeded = errors.New("sensor exceeds its maximum vector length")
	ErrSensorOutboundCountMismatch = errors.New("sensor outbound_count does not match reference count")
	ErrConnectionOrderGap  = errors.New("sensor-sourced connection_order is not a dense prefix")
)

// Validate checks every structural invariant a record set must satisfy:
// inbound references resolve to real, non-actuator nodes; function-id
// presence matches each node's kind; and every sensor's fan-out and
// connection_order stay within bounds. It returns the first violation
// found, wrapped with context.
func (nr NodeRecords) Validate() error {
	for _, id := range nr.Ids() {
		node := nr[id]

		if err := validateFunctionIds(node); err != nil {
			return fmt.Errorf("node %d: %w", id, err)
		}

		if node.IsSensor() && len(node.Inbound) > 0 {
			return fmt.Errorf("node %d: %w", id, ErrSensorHasInbound)
		}

		for _, cid := range sortedConnectionIds(node.Inbound) {
			conn := node.Inbound[cid]
			from, ok := nr[conn.FromNode]
			if !ok {
				return fmt.Errorf("node %d connection %s: %w (from_node=%d)", id, cid, ErrDanglingReference, conn.FromNode)
			}
			if from.IsActuator() {
				return fmt.Errorf("node %d connection %s: %w (actuator=%d)", id, cid, ErrActuatorIsReferenced, conn.FromNode)
			}
		}

		if node.IsSensor() {
			if err := validateSensorFanout(nr, node); err != nil {
				return fmt.Errorf("sensor %d: %w", id, err)
			}
			if err := validateConnectionOrder(nr, node); err != nil {
				return fmt.Errorf("sensor %d: %w", id, err)
			}
		}
	}
	return nil
}

func validateFunctionIds(node *NodeRecord) error {
	hasActivation := node.ActivationFunctionID != nil
	hasSync := node.SyncFunctionID != nil
	hasHook := node.OutputHookID != nil

	switch node.Type.Kind {
	case KindNeuron:
		if !hasActivation || hasSync || hasHook {
			return ErrFunctionIdMismatch
		}
	case KindSensor:
		if hasActivation || !hasSync || hasHook {
			return ErrFunctionIdMismatch
		}
	case KindActuator:
		if hasActivation || hasSync || !hasHook {
			return ErrFunctionIdMismatch
		}
	}
	return nil
}

func validateSensorFanout(nr NodeRecords, sensor *NodeRecord) error {
	refs := nr.InboundReferencesTo(sensor.NodeId)
	if sensor.MaximumVectorLength != nil {
		if n := *sensor.MaximumVectorLength; n > 0 && uint32(len(refs)) > n {
			return ErrSensorFanoutExceeded
		}
	}
	if sensor.Type.OutboundCount != uint32(len(refs)) {
		return fmt.Errorf("%w: outbound_count=%d references=%d", ErrSensorOutboundCountMismatch, sensor.Type.OutboundCount, len(refs))
	}
	return nil
}

// validateConnectionOrder checks that, across every inbound connection
// anywhere in the record set sourced from this sensor (regardless of
// which downstream node owns the connection), connection_order values
// form a dense 0..k prefix with no gaps or duplicates. This is a
// per-sensor invariant, not a per-owner one: a sensor's fanout can be
// split across many distinct downstream neurons, and connection_order
// must still be dense across all of them combined.
func validateConnectionOrder(nr NodeRecords, sensor *NodeRecord) error {
	refs := nr.InboundReferencesTo(sensor.NodeId)
	orders := make([]uint32, 0, len(refs))
	for _, ref := range refs {
		if ref.Connection.ConnectionOrder == nil {
			return fmt.Errorf("%w: connection %s from sensor has no connection_order", ErrConnectionOrderGap, ref.ConnectionId)
		}
		orders = append(orders, *ref.Connection.ConnectionOrder)
	}
	if len(orders) == 0 {
		return nil
	}
	seen := make(map[uint32]bool, len(orders))
	for _, o := range orders {
		if seen[o] {
			return fmt.Errorf("%w: duplicate order %d", ErrConnectionOrderGap, o)
		}
		seen[o] = true
	}
	for i := uint32(0); i < uint32(len(orders)); i++ {
		if !seen[i] {
			return fmt.Errorf("%w: missing order %d", ErrConnectionOrderGap, i)
		}
	}
	return nil
}
