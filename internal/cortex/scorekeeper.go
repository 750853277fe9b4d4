package cortex

import "synaptica/internal/tables"

// Directive is the scheduler signal a fitness function returns alongside a
// score: whether the generation currently under evaluation should keep
// running or be cut short.
type Directive int

const (
	ContinueGeneration Directive = iota
	EndGeneration
)

// FitnessFunc reduces one network's gathered output-hook buffer into a
// score and a scheduling directive.
type FitnessFunc func(networkId tables.NetworkId, buffer map[string]float64) (float64, Directive)

// ScoreKeeper is the actor one live network's output hooks report into.
// Its buffer maps output_hook_id to the latest value seen for that hook,
// not a history — Gather overwrites, it never accumulates. It mirrors the
// request/response mailbox shape used throughout internal/substrate
// rather than a mutex, keeping every piece of mutable state owned by
// exactly one goroutine.
type ScoreKeeper struct {
	networkId tables.NetworkId
	fitness   FitnessFunc

	gather chan gatherMsg
	score  chan chan scoreReply
	kill   chan chan struct{}
}

type gatherMsg struct {
	hookID string
	value  float64
	ack    chan struct{}
}

type scoreReply struct {
	score     float64
	directive Directive
}

// NewScoreKeeper starts a score keeper bound to one network and fitness
// function.
func NewScoreKeeper(networkId tables.NetworkId, fitness FitnessFunc) *ScoreKeeper {
	sk := &ScoreKeeper{
		networkId: networkId,
		fitness:   fitness,
		gather:    make(chan gatherMsg, 256),
		score:     make(chan chan scoreReply),
		kill:      make(chan chan struct{}),
	}
	go sk.run()
	return sk
}

func (sk *ScoreKeeper) run() {
	buffer := map[string]float64{}
	for {
		select {
		case m := <-sk.gather:
			buffer[m.hookID] = m.value
			m.ack <- struct{}{}

		case reply := <-sk.score:
			score, directive := sk.fitness(sk.networkId, buffer)
			reply <- scoreReply{score: score, directive: directive}
			buffer = map[string]float64{}

		case reply := <-sk.kill:
			reply <- struct{}{}
			return
		}
	}
}

// Gather overwrites the buffer entry for outputHookID with value and
// blocks until sk.run has applied it. The ack matters: an actuator calls
// its hook then immediately signals onFire, and once every actuator has
// fired the caller of ThinkAndAct requests GetScore on a separate channel serviced by
// the same select loop — Go gives no FIFO guarantee across distinct
// channels, so a fire-and-forget send here could let GetScore read a
// buffer still missing the last cycle's value.
func (sk *ScoreKeeper) Gather(outputHookID string, value float64) {
	ack := make(chan struct{})
	sk.gather <- gatherMsg{hookID: outputHookID, value: value, ack: ack}
	<-ack
}

// HookFor returns an OutputHook closure bound to one output_hook_id, ready
// to hand to cortex.Construct as that actuator's hook.
func (sk *ScoreKeeper) HookFor(outputHookID string) tables.OutputHook {
	return func(v float64) { sk.Gather(outputHookID, v) }
}

// GetScore invokes the fitness function over the current buffer, returns
// its score and directive, and clears the buffer for the next think cycle.
func (sk *ScoreKeeper) GetScore() (float64, Directive) {
	reply := make(chan scoreReply)
	sk.score <- reply
	r := <-reply
	return r.score, r.directive
}

// KillScoreKeeper stops the keeper.
func (sk *ScoreKeeper) KillScoreKeeper() {
	reply := make(chan struct{})
	sk.kill <- reply
	<-reply
}
