package substrate

import (
	"testing"
	"time"

	"synaptica/internal/record"
	"synaptica/internal/tables"
)

// TestChain_SensorNeuronActuator wires a sensor -> neuron -> actuator chain
// by hand, covering a one-neuron fan-in with a bias applied, and checks the
// barrier-synchronized think cycle produces the expected output without a
// cortex coordinator.
func TestChain_SensorNeuronActuator(t *testing.T) {
	bias := 0.5
	identity := tables.ActivationFunc(func(x float64) float64 { return x })
	constSource := tables.SyncFunc(func() []float64 { return []float64{2.0} })

	captured := make(chan float64, 1)
	hook := tables.OutputHook(func(v float64) { captured <- v })

	actuatorHandle := NewActuator(2, 2, "hook.capture", hook, map[record.ConnectionId]record.InactiveConnection{
		"c1": {FromNode: 1, Weight: 1.0},
	}, nil)

	neuronInbound := map[record.ConnectionId]record.InactiveConnection{
		"c0": {ConnectionOrder: record.Uint32Ptr(0), FromNode: 0, Weight: 3.0},
	}
	neuronHandle := NewNeuron(1, 1, "identity", identity, &bias, record.LearningAlgorithm{Kind: record.NoLearning}, neuronInbound)

	sensorHandle := NewSensor(0, "sync.const", constSource, 1, nil)

	neuronHandle.AttachOutbound(OutboundEdge{To: actuatorHandle, Weight: 1.0})
	actuatorHandle.IncrementBarrierThreshold()
	sensorHandle.AttachOutbound(OutboundEdge{To: neuronHandle, Weight: 3.0})
	neuronHandle.IncrementBarrierThreshold()

	sensorHandle.Sync()

	select {
	case got := <-captured:
		// sensor emits 2.0, neuron computes 2.0*3.0 + bias(0.5) = 6.5,
		// actuator sums its one input, 6.5.
		if got != 6.5 {
			t.Fatalf("expected actuator output 6.5, got %v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for actuator hook")
	}

	actuatorHandle.Kill()
	neuronRecord := neuronHandle.Kill()
	sensorHandle.Kill()

	if neuronRecord.Bias == nil || *neuronRecord.Bias != 0.5 {
		t.Fatalf("expected neuron bias to survive teardown, got %+v", neuronRecord.Bias)
	}
}

// TestNeuron_HebbianUpdateVisibleAfterTeardown checks the documented
// simplification: a Hebbian update lands on the neuron's own record copy
// and is observable once the node is killed, even though it cannot affect
// the live sender's outbound weight mid-cycle.
func TestNeuron_HebbianUpdateVisibleAfterTeardown(t *testing.T) {
	identity := tables.ActivationFunc(func(x float64) float64 { return x })
	inbound := map[record.ConnectionId]record.InactiveConnection{
		"c0": {FromNode: 0, Weight: 1.0},
	}
	neuronHandle := NewNeuron(1, 0, "identity", identity, nil, record.LearningAlgorithm{Kind: record.Hebbian, Rate: 0.1}, inbound)

	sink := newHandle(99, record.KindActuator)
	go func() {
		for range sink.mailbox {
		}
	}()
	neuronHandle.AttachOutbound(OutboundEdge{To: sink, Weight: 1.0})
	neuronHandle.IncrementBarrierThreshold()

	neuronHandle.ReceiveInput(0, 2.0, 1.0)

	time.Sleep(10 * time.Millisecond)
	rec := neuronHandle.Kill()
	close(sink.mailbox)

	conn := rec.Inbound["c0"]
	// output = 2.0*1.0 = 2.0; delta = rate(0.1) * input(2.0) * output(2.0) = 0.4
	want := 1.0 + 0.1*2.0*2.0
	if conn.Weight != want {
		t.Fatalf("expected hebbian-updated weight %v, got %v", want, conn.Weight)
	}
}

// TestSensor_RotatesShortReading checks that a sensor with more outbound
// edges than its reading's length rotates the reading across the extra
// edges instead of erroring or dropping them.
func TestSensor_RotatesShortReading(t *testing.T) {
	source := tables.SyncFunc(func() []float64 { return []float64{1.0, 2.0} })
	sensorHandle := NewSensor(0, "sync.two", source, 3, nil)

	results := make([]chan float64, 3)
	for i := 0; i < 3; i++ {
		id := record.NodeId(i + 1)
		h := newHandle(id, record.KindActuator)
		results[i] = make(chan float64, 1)
		go func(h *Handle, out chan float64) {
			for m := range h.mailbox {
				if m.kind == msgReceiveInput {
					out <- m.value
				}
			}
		}(h, results[i])
		sensorHandle.AttachOutbound(OutboundEdge{To: h, Weight: 1.0})
	}

	sensorHandle.Sync()

	want := []float64{1.0, 2.0, 1.0}
	for i := range want {
		got := <-results[i]
		if got != want[i] {
			t.Fatalf("expected rotated reading %v at edge %d, got %v", want[i], i, got)
		}
	}

	sensorHandle.Kill()
}
