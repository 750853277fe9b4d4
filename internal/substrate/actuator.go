package substrate

import (
	"synaptica/internal/record"
	"synaptica/internal/tables"
)

// Actuator is the live form of a KindActuator record. It accumulates one
// barrier-synchronized sum per think cycle, same as a neuron, but applies
// an output hook instead of an activation function and emits nothing
// downstream.
type Actuator struct {
	handle *Handle

	outputHookID string
	hook         tables.OutputHook
	inbound      map[record.ConnectionId]record.InactiveConnection
	layer        int32

	barrierThreshold int
	onFire           func()
}

// NewActuator starts an actuator's run loop. onFire, if non-nil, is called
// once per completed accumulation, after the hook runs, so a cortex's
// think-cycle coordinator can count actuators that have settled.
func NewActuator(id record.NodeId, layer int32, outputHookID string, hook tables.OutputHook, inbound map[record.ConnectionId]record.InactiveConnection, onFire func()) *Handle {
	a := &Actuator{
		handle:           newHandle(id, record.KindActuator),
		outputHookID:     outputHookID,
		hook:             hook,
		inbound:          cloneInbound(inbound),
		layer:            layer,
		barrierThreshold: 0,
		onFire:           onFire,
	}
	go a.run()
	return a.handle
}

func (a *Actuator) run() {
	var sum float64
	var received int

	for msg := range a.handle.mailbox {
		switch msg.kind {
		case msgIncrementBarrierThreshold:
			a.barrierThreshold++
			msg.ackReply <- struct{}{}

		case msgReceiveInput:
			sum += msg.value
			received++
			if received == a.barrierThreshold {
				a.hook(sum)
				if a.onFire != nil {
					a.onFire()
				}
				sum, received = 0, 0
			}

		case msgKill:
			msg.killReply <- a.toRecord()
			close(a.handle.mailbox)
			return
		}
	}
}

func (a *Actuator) toRecord() *record.NodeRecord {
	return &record.NodeRecord{
		NodeId:       a.handle.Id,
		Layer:        a.layer,
		Type:         record.ActuatorType(),
		Inbound:      cloneInbound(a.inbound),
		OutputHookID: &a.outputHookID,
	}
}
