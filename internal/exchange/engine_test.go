package exchange

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakePublisher records published frames and can optionally echo an
// acknowledgment back into the engine, standing in for a controller.
type fakePublisher struct {
	mu     sync.Mutex
	frames [][]byte
	topics []string

	// onPublish, when set, is called with the framed payload after recording.
	onPublish func(topic string, framed []byte)

	// err, when set, is returned from Publish.
	err error
}

func (p *fakePublisher) Publish(topic string, payload []byte, qos byte, retained bool) error {
	p.mu.Lock()
	frame := make([]byte, len(payload))
	copy(frame, payload)
	p.frames = append(p.frames, frame)
	p.topics = append(p.topics, topic)
	cb := p.onPublish
	err := p.err
	p.mu.Unlock()

	if err != nil {
		return err
	}
	if cb != nil {
		cb(topic, frame)
	}
	return nil
}

func (p *fakePublisher) setOnPublish(cb func(topic string, framed []byte)) {
	p.mu.Lock()
	p.onPublish = cb
	p.mu.Unlock()
}

func (p *fakePublisher) lastFrame() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.frames) == 0 {
		return nil
	}
	return p.frames[len(p.frames)-1]
}

const testDevice = "AA:BB:CC:DD:EE:01"

func TestSendAndAwait_Acked(t *testing.T) {
	pub := &fakePublisher{}
	engine := New(pub, 1)

	// Echo the correlation id back as a controller would.
	pub.setOnPublish(func(topic string, framed []byte) {
		go engine.HandleReply(ClassLight, testDevice, []byte{framed[0]})
	})

	err := engine.SendAndAwait(context.Background(), testDevice, ClassLight,
		"pbl/"+testDevice+"/light/set", []byte{10, 20, 0xFF, 0x00, 0xFF}, time.Second)
	if err != nil {
		t.Fatalf("SendAndAwait() error = %v", err)
	}

	if n := engine.Outstanding(ClassLight); n != 0 {
		t.Errorf("Outstanding() = %d after ack, want 0", n)
	}
}

func TestSendAndAwait_PrependsCorrelationID(t *testing.T) {
	pub := &fakePublisher{}
	engine := New(pub, 1)

	pub.setOnPublish(func(topic string, framed []byte) {
		go engine.HandleReply(ClassConfig, testDevice, []byte{framed[0]})
	})

	payload := []byte{3, 10, 20}
	err := engine.SendAndAwait(context.Background(), testDevice, ClassConfig,
		"pbl/"+testDevice+"/config/create_Position", payload, time.Second)
	if err != nil {
		t.Fatalf("SendAndAwait() error = %v", err)
	}

	frame := pub.lastFrame()
	if len(frame) != len(payload)+1 {
		t.Fatalf("frame length = %d, want %d", len(frame), len(payload)+1)
	}
	for i, b := range payload {
		if frame[i+1] != b {
			t.Errorf("frame[%d] = %d, want %d", i+1, frame[i+1], b)
		}
	}
}

func TestSendAndAwait_Timeout(t *testing.T) {
	pub := &fakePublisher{} // never replies
	engine := New(pub, 1)

	start := time.Now()
	err := engine.SendAndAwait(context.Background(), testDevice, ClassLight,
		"pbl/"+testDevice+"/light/allOff", nil, 50*time.Millisecond)
	elapsed := time.Since(start)

	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("SendAndAwait() error = %v, want ErrTimeout", err)
	}
	if elapsed < 50*time.Millisecond {
		t.Errorf("returned after %v, before the deadline", elapsed)
	}
	if elapsed > time.Second {
		t.Errorf("returned after %v, far past the deadline", elapsed)
	}

	if n := engine.Outstanding(ClassLight); n != 0 {
		t.Errorf("Outstanding() = %d after timeout, want 0", n)
	}
}

func TestSendAndAwait_LateReplyIsNoOp(t *testing.T) {
	pub := &fakePublisher{}
	engine := New(pub, 1)

	err := engine.SendAndAwait(context.Background(), testDevice, ClassLight,
		"pbl/"+testDevice+"/light/allOff", nil, 20*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("SendAndAwait() error = %v, want ErrTimeout", err)
	}

	// The abandoned id arriving now must not disturb anything.
	frame := pub.lastFrame()
	engine.HandleReply(ClassLight, testDevice, []byte{frame[0]})

	if n := engine.Outstanding(ClassLight); n != 0 {
		t.Errorf("Outstanding() = %d after late reply, want 0", n)
	}
}

func TestSendAndAwait_PublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker gone")}
	engine := New(pub, 1)

	err := engine.SendAndAwait(context.Background(), testDevice, ClassLight,
		"pbl/"+testDevice+"/light/allOn", []byte{1, 2, 3}, time.Second)
	if !errors.Is(err, ErrPublishFailed) {
		t.Fatalf("SendAndAwait() error = %v, want ErrPublishFailed", err)
	}

	// The waiter must not leak.
	if n := engine.Outstanding(ClassLight); n != 0 {
		t.Errorf("Outstanding() = %d after publish failure, want 0", n)
	}
}

func TestSendAndAwait_UnknownClass(t *testing.T) {
	engine := New(&fakePublisher{}, 1)

	err := engine.SendAndAwait(context.Background(), testDevice, Class("bogus"),
		"pbl/x", nil, time.Second)
	if !errors.Is(err, ErrUnknownClass) {
		t.Errorf("SendAndAwait() error = %v, want ErrUnknownClass", err)
	}
}

func TestSendAndAwait_Cancelled(t *testing.T) {
	pub := &fakePublisher{}
	engine := New(pub, 1)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := engine.SendAndAwait(ctx, testDevice, ClassLight,
		"pbl/"+testDevice+"/light/allOff", nil, 10*time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("SendAndAwait() error = %v, want context.Canceled", err)
	}

	if n := engine.Outstanding(ClassLight); n != 0 {
		t.Errorf("Outstanding() = %d after cancellation, want 0", n)
	}
}

func TestSendAndAwait_ConcurrentIDsUnique(t *testing.T) {
	pub := &fakePublisher{} // never replies; exchanges stay outstanding
	engine := New(pub, 1)

	const n = 64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Long timeout; we resolve the waiters manually below.
			engine.SendAndAwait(context.Background(), testDevice, ClassLight,
				"pbl/"+testDevice+"/light/set", []byte{1}, 5*time.Second)
		}()
	}

	// Wait for all n publishes to land.
	deadline := time.After(2 * time.Second)
	for {
		pub.mu.Lock()
		published := len(pub.frames)
		pub.mu.Unlock()
		if published == n {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("only %d of %d exchanges published", published, n)
		case <-time.After(5 * time.Millisecond):
		}
	}

	pub.mu.Lock()
	seen := make(map[byte]bool)
	for _, frame := range pub.frames {
		if seen[frame[0]] {
			t.Errorf("correlation id %d used twice while outstanding", frame[0])
		}
		seen[frame[0]] = true
	}
	frames := make([][]byte, len(pub.frames))
	copy(frames, pub.frames)
	pub.mu.Unlock()

	if got := engine.Outstanding(ClassLight); got != n {
		t.Errorf("Outstanding() = %d, want %d", got, n)
	}

	// Release every waiter so the goroutines finish.
	for _, frame := range frames {
		engine.HandleReply(ClassLight, testDevice, []byte{frame[0]})
	}
	wg.Wait()

	if got := engine.Outstanding(ClassLight); got != 0 {
		t.Errorf("Outstanding() = %d after draining, want 0", got)
	}
}

func TestSendAndAwait_IDSpaceExhausted(t *testing.T) {
	engine := New(&fakePublisher{}, 1)

	// Occupy the full id space directly.
	ws := engine.classes[ClassLight]
	for i := 0; i < idSpaceSize; i++ {
		if _, _, err := ws.register(testDevice); err != nil {
			t.Fatalf("register(%d) error = %v", i, err)
		}
	}

	err := engine.SendAndAwait(context.Background(), testDevice, ClassLight,
		"pbl/"+testDevice+"/light/set", []byte{1}, time.Second)
	if !errors.Is(err, ErrIDSpaceExhausted) {
		t.Fatalf("SendAndAwait() error = %v, want ErrIDSpaceExhausted", err)
	}
}

func TestClassesAreIndependent(t *testing.T) {
	pub := &fakePublisher{}
	engine := New(pub, 1)

	// A config exchange outstanding must not block a light exchange on the
	// same controller, and a light ack must not resolve a config waiter.
	configDone := make(chan error, 1)
	go func() {
		configDone <- engine.SendAndAwait(context.Background(), testDevice, ClassConfig,
			"pbl/"+testDevice+"/config/reset", nil, 2*time.Second)
	}()

	// Wait until the config exchange is registered.
	for i := 0; engine.Outstanding(ClassConfig) == 0; i++ {
		if i > 200 {
			t.Fatal("config exchange never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	pub.setOnPublish(func(topic string, framed []byte) {
		go engine.HandleReply(ClassLight, testDevice, []byte{framed[0]})
	})

	err := engine.SendAndAwait(context.Background(), testDevice, ClassLight,
		"pbl/"+testDevice+"/light/allOn", []byte{1, 2, 3}, time.Second)
	if err != nil {
		t.Fatalf("light SendAndAwait() error = %v", err)
	}

	if n := engine.Outstanding(ClassConfig); n != 1 {
		t.Errorf("config Outstanding() = %d, want 1 (light ack must not touch it)", n)
	}

	// Now release the config waiter.
	pub.mu.Lock()
	configFrame := pub.frames[0]
	pub.mu.Unlock()
	engine.HandleReply(ClassConfig, testDevice, []byte{configFrame[0]})

	if err := <-configDone; err != nil {
		t.Errorf("config SendAndAwait() error = %v", err)
	}
}

func TestHandleReply_EmptyPayload(t *testing.T) {
	engine := New(&fakePublisher{}, 1)

	// Must not panic or register anything.
	engine.HandleReply(ClassLight, testDevice, nil)
	engine.HandleReply(ClassConfig, testDevice, []byte{})

	if n := engine.Outstanding(ClassLight); n != 0 {
		t.Errorf("Outstanding() = %d, want 0", n)
	}
}

func TestHandleReply_UnknownClass(t *testing.T) {
	engine := New(&fakePublisher{}, 1)
	engine.HandleReply(Class("bogus"), testDevice, []byte{1})
}

// recordingObserver captures observer notifications.
type recordingObserver struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func (o *recordingObserver) ExchangeCompleted(device string, class Class, outcome Outcome, duration time.Duration) {
	o.mu.Lock()
	o.outcomes = append(o.outcomes, outcome)
	o.mu.Unlock()
}

func TestObserverNotified(t *testing.T) {
	pub := &fakePublisher{}
	engine := New(pub, 1)
	obs := &recordingObserver{}
	engine.AddObserver(obs)

	pub.setOnPublish(func(topic string, framed []byte) {
		go engine.HandleReply(ClassLight, testDevice, []byte{framed[0]})
	})
	if err := engine.SendAndAwait(context.Background(), testDevice, ClassLight,
		"pbl/"+testDevice+"/light/allOn", []byte{1, 2, 3}, time.Second); err != nil {
		t.Fatalf("SendAndAwait() error = %v", err)
	}

	pub.setOnPublish(nil)
	if err := engine.SendAndAwait(context.Background(), testDevice, ClassLight,
		"pbl/"+testDevice+"/light/allOff", nil, 20*time.Millisecond); !errors.Is(err, ErrTimeout) {
		t.Fatalf("SendAndAwait() error = %v, want ErrTimeout", err)
	}

	obs.mu.Lock()
	defer obs.mu.Unlock()
	if len(obs.outcomes) != 2 {
		t.Fatalf("observer saw %d outcomes, want 2", len(obs.outcomes))
	}
	if obs.outcomes[0] != OutcomeAcked {
		t.Errorf("outcomes[0] = %q, want %q", obs.outcomes[0], OutcomeAcked)
	}
	if obs.outcomes[1] != OutcomeTimeout {
		t.Errorf("outcomes[1] = %q, want %q", obs.outcomes[1], OutcomeTimeout)
	}
}
