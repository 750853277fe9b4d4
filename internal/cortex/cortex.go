// Package cortex constructs a live substrate graph from a record.NodeRecords
// snapshot, drives barrier-synchronized think cycles across it, and tears
// it back down into a fresh snapshot. Construction and teardown stay a
// synchronous, sequential walk over the record set, while the think cycle
// itself fans out across the live actor goroutines in internal/substrate.
package cortex

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"synaptica/internal/record"
	"synaptica/internal/substrate"
	"synaptica/internal/tables"
)

var (
	ErrUnresolvedOutputHook = errors.New("actuator references an output hook not supplied at construction")
)

// Cortex is one constructed, live network: a set of running actor
// goroutines addressed by handle, ready to be driven through think cycles
// and torn back down.
type Cortex struct {
	networkId tables.NetworkId

	handles     map[record.NodeId]*substrate.Handle
	sensorIds   []record.NodeId
	actuatorIds []record.NodeId

	fired      chan firedMsg
	generation uint64
}

// firedMsg tags an actuator's settle report with the think-cycle generation
// it belongs to. A cycle that times out can have its actuators settle and
// report in after ThinkAndAct has already returned; tagging lets the next
// call tell a fire that belongs to it apart from one left over from the
// cycle it abandoned, instead of crossing an actuator off by mistake before
// it has actually fired in the current cycle.
type firedMsg struct {
	id         record.NodeId
	generation uint64
}

// Construct resolves every id a record set carries into a live actor,
// wires resolved outbound edges, and returns a running Cortex. hooks
// supplies the concrete callable for every output_hook_id an actuator may
// reference; callers typically build one closure per network, closing over
// a ScoreKeeper.
func Construct(nr record.NodeRecords, networkId tables.NetworkId, activations tables.ActivationFunctions, syncs tables.SyncFunctionSources, hooks map[string]tables.OutputHook) (*Cortex, error) {
	if err := nr.Validate(); err != nil {
		return nil, fmt.Errorf("construct: %w", err)
	}

	hookIds := make(tables.OutputHookIds, 0, len(hooks))
	for id := range hooks {
		hookIds = append(hookIds, id)
	}
	if err := tables.ValidateAgainst(nr, activations, syncs, hookIds); err != nil {
		return nil, fmt.Errorf("construct: %w", err)
	}

	c := &Cortex{
		networkId: networkId,
		handles:   make(map[record.NodeId]*substrate.Handle, len(nr)),
		fired:     make(chan firedMsg, len(nr.Actuators())),
	}

	for _, n := range nr.Sensors() {
		syncSource, err := syncs.Lookup(*n.SyncFunctionID)
		if err != nil {
			return nil, err
		}
		h := substrate.NewSensor(n.NodeId, *n.SyncFunctionID, syncSource(networkId), n.Type.OutboundCount, n.MaximumVectorLength)
		c.handles[n.NodeId] = h
		c.sensorIds = append(c.sensorIds, n.NodeId)
	}

	for _, n := range nr.Neurons() {
		activation, err := activations.Lookup(*n.ActivationFunctionID)
		if err != nil {
			return nil, err
		}
		h := substrate.NewNeuron(n.NodeId, n.Layer, *n.ActivationFunctionID, activation, n.Bias, n.Learning, n.Inbound)
		c.handles[n.NodeId] = h
	}

	for _, n := range nr.Actuators() {
		hook, ok := hooks[*n.OutputHookID]
		if !ok {
			return nil, fmt.Errorf("node %d: %w (%s)", n.NodeId, ErrUnresolvedOutputHook, *n.OutputHookID)
		}
		id := n.NodeId
		h := substrate.NewActuator(n.NodeId, n.Layer, *n.OutputHookID, hook, n.Inbound, func() {
			c.fired <- firedMsg{id: id, generation: atomic.LoadUint64(&c.generation)}
		})
		c.handles[n.NodeId] = h
		c.actuatorIds = append(c.actuatorIds, n.NodeId)
	}

	if err := c.attachOutboundEdges(nr); err != nil {
		return nil, err
	}

	return c, nil
}

// attachOutboundEdges wires every resolved (downstream, inbound) pair:
// attach the outbound edge on the upstream actor, then send
// IncrementBarrierThreshold to the downstream actor and await its reply,
// so no node starts firing before its in-degree is fully known (spec
// §4.2's Construct bullet).
func (c *Cortex) attachOutboundEdges(nr record.NodeRecords) error {
	for _, id := range nr.Ids() {
		node := nr[id]
		if node.IsSensor() {
			refs := nr.InboundReferencesTo(id)
			sort.Slice(refs, func(i, j int) bool {
				oi, oj := refs[i].Connection.ConnectionOrder, refs[j].Connection.ConnectionOrder
				if oi == nil || oj == nil {
					return false
				}
				return *oi < *oj
			})
			for _, ref := range refs {
				c.handles[id].AttachOutbound(substrate.OutboundEdge{To: c.handles[ref.OwnerId], Weight: ref.Connection.Weight})
				c.handles[ref.OwnerId].IncrementBarrierThreshold()
			}
		} else if node.IsNeuron() {
			for _, ref := range nr.InboundReferencesTo(id) {
				c.handles[id].AttachOutbound(substrate.OutboundEdge{To: c.handles[ref.OwnerId], Weight: ref.Connection.Weight})
				c.handles[ref.OwnerId].IncrementBarrierThreshold()
			}
		}
	}
	return nil
}

// ThinkCycleResult reports whether every actuator settled before the
// deadline passed.
type ThinkCycleResult int

const (
	ThinkCycleFinished ThinkCycleResult = iota
	ThinkCycleIncomplete
)

// ThinkAndAct syncs every sensor once and waits for every actuator to fire
// exactly once, or for ctx to end first. A think cycle that times out
// leaves its actuators free to keep running; they can still settle and
// report in after this call has already returned ThinkCycleIncomplete.
// ThinkAndAct tags its wait with a fresh generation and discards any fire
// carrying an older one, so a late straggler from an abandoned cycle can
// never be mistaken for progress in the cycle that follows it.
func (c *Cortex) ThinkAndAct(ctx context.Context) ThinkCycleResult {
	gen := atomic.AddUint64(&c.generation, 1)
	c.drainStaleFires()

	for _, id := range c.sensorIds {
		c.handles[id].Sync()
	}

	remaining := map[record.NodeId]bool{}
	for _, id := range c.actuatorIds {
		remaining[id] = true
	}

	for len(remaining) > 0 {
		select {
		case msg := <-c.fired:
			if msg.generation == gen {
				delete(remaining, msg.id)
			}
		case <-ctx.Done():
			return ThinkCycleIncomplete
		}
	}
	return ThinkCycleFinished
}

// drainStaleFires empties any fire reports left over from a cycle this
// Cortex already abandoned, so the fired channel's fixed capacity (one slot
// per actuator) never fills up with reports nobody is going to consume.
func (c *Cortex) drainStaleFires() {
	for {
		select {
		case <-c.fired:
		default:
			return
		}
	}
}

// ThinkAndActTimeout is a convenience wrapper around ThinkAndAct for
// callers that think in terms of a duration rather than a context.
func (c *Cortex) ThinkAndActTimeout(d time.Duration) ThinkCycleResult {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return c.ThinkAndAct(ctx)
}

// Kill tears every live actor down and reassembles their records into a
// fresh snapshot. Order does not matter: each actor only ever reports its
// own accumulated state.
func (c *Cortex) Kill() record.NodeRecords {
	nr := make(record.NodeRecords, len(c.handles))
	for id, h := range c.handles {
		nr[id] = h.Kill()
	}
	return nr
}
