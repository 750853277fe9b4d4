package substrate

import (
	"synaptica/internal/record"
	"synaptica/internal/tables"
)

// Sensor is the live form of a KindSensor record. It holds no barrier —
// sensors never receive ReceiveInput — and instead answers Sync by reading
// its bound data source once and distributing values across its outbound
// fanout in connection_order, rotating if the reading is shorter than the
// fanout.
type Sensor struct {
	handle *Handle

	syncFunctionID string
	sync           tables.SyncFunc

	maximumVectorLength *uint32
	outboundCount       uint32
	outbound            []OutboundEdge
}

// NewSensor starts a sensor's run loop. outbound edges must be attached via
// AttachOutbound in ascending connection_order: Sync distributes the
// reading positionally across whatever has been attached so far.
func NewSensor(id record.NodeId, syncFunctionID string, sync tables.SyncFunc, outboundCount uint32, maximumVectorLength *uint32) *Handle {
	s := &Sensor{
		handle:               newHandle(id, record.KindSensor),
		syncFunctionID:       syncFunctionID,
		sync:                 sync,
		maximumVectorLength:  maximumVectorLength,
		outboundCount:        outboundCount,
	}
	go s.run()
	return s.handle
}

func (s *Sensor) run() {
	for msg := range s.handle.mailbox {
		switch msg.kind {
		case msgAttachOutbound:
			s.outbound = append(s.outbound, msg.edge)
			msg.ackReply <- struct{}{}

		case msgIncrementBarrierThreshold:
			// Sensors have no barrier; acknowledge and ignore.
			msg.ackReply <- struct{}{}

		case msgSync:
			s.emit()

		case msgKill:
			msg.killReply <- s.toRecord()
			close(s.handle.mailbox)
			return
		}
	}
}

func (s *Sensor) emit() {
	values := s.sync()
	if len(values) == 0 {
		return
	}
	for i, edge := range s.outbound {
		v := values[i%len(values)]
		edge.To.ReceiveInput(s.handle.Id, v, edge.Weight)
	}
}

func (s *Sensor) toRecord() *record.NodeRecord {
	return &record.NodeRecord{
		NodeId:              s.handle.Id,
		Type:                record.SensorType(s.outboundCount),
		Inbound:             map[record.ConnectionId]record.InactiveConnection{},
		SyncFunctionID:      &s.syncFunctionID,
		MaximumVectorLength: s.maximumVectorLength,
	}
}
