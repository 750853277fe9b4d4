package record

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// IdGenerator is the process-wide NodeId allocator. Spec §9 calls for
// replacing the original actor-based id generator with an atomic counter
// now that mailboxes are no longer the only available primitive; the
// generator stays a single shared instance regardless, matching the
// spec's "shared resource" framing in §5.
type IdGenerator struct {
	next atomic.Int64
}

// NewIdGenerator returns a generator whose first allocation is start.
func NewIdGenerator(start NodeId) *IdGenerator {
	g := &IdGenerator{}
	g.next.Store(int64(start))
	return g
}

// Next allocates and returns the next NodeId.
func (g *IdGenerator) Next() NodeId {
	return NodeId(g.next.Add(1) - 1)
}

// NewConnectionId mints a fresh opaque connection id. The spec permits any
// opaque scheme ("e.g. UUID"); synaptica uses UUIDv4 throughout.
func NewConnectionId() ConnectionId {
	return ConnectionId(uuid.NewString())
}
