package messaging

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestSendDeliversInFIFOOrderPerPair(t *testing.T) {
	sub := NewSubstrate(0)
	var mu sync.Mutex
	var received []int

	addr := sub.Spawn(func(msg Message) {
		mu.Lock()
		received = append(received, msg.Body.(int))
		mu.Unlock()
	})

	for i := 0; i < 50; i++ {
		sub.Send(addr, Message{Type: TickMessage, Body: i})
	}
	sub.Quiesce()

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 50 {
		t.Fatalf("expected 50 messages processed, got %d", len(received))
	}
	for i, v := range received {
		if v != i {
			t.Fatalf("FIFO order violated at index %d: got %d", i, v)
		}
	}
}

func TestQuiesceWaitsForAllMailboxes(t *testing.T) {
	sub := NewSubstrate(0)
	var counter int64

	var addrs []*Address
	for i := 0; i < 5; i++ {
		addrs = append(addrs, sub.Spawn(func(msg Message) {
			atomic.AddInt64(&counter, 1)
		}))
	}

	for _, a := range addrs {
		for i := 0; i < 10; i++ {
			sub.Send(a, Message{Type: TickMessage})
		}
	}
	sub.Quiesce()

	if got := atomic.LoadInt64(&counter); got != 50 {
		t.Fatalf("expected all 50 messages processed before Quiesce returned, got %d", got)
	}
}

func TestHandlerRunsSingleThreaded(t *testing.T) {
	sub := NewSubstrate(0)
	var inHandler int32
	var raced bool

	addr := sub.Spawn(func(msg Message) {
		if !atomic.CompareAndSwapInt32(&inHandler, 0, 1) {
			raced = true
		}
		atomic.StoreInt32(&inHandler, 0)
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub.Send(addr, Message{Type: TickMessage})
		}()
	}
	wg.Wait()
	sub.Quiesce()

	if raced {
		t.Errorf("expected mailbox handler to never run concurrently with itself")
	}
}

func TestStopDrainsWithoutBlockingQuiesce(t *testing.T) {
	sub := NewSubstrate(0)
	addr := sub.Spawn(func(msg Message) {})
	for i := 0; i < 5; i++ {
		sub.Send(addr, Message{Type: TickMessage})
	}
	sub.Stop(addr)
	sub.Quiesce()
}

func TestHandlerPanicIsRecoveredAndMailboxStaysAlive(t *testing.T) {
	sub := NewSubstrate(0)
	var processed int32

	addr := sub.Spawn(func(msg Message) {
		if msg.Body == "boom" {
			panic("handler bug")
		}
		atomic.AddInt32(&processed, 1)
	})

	sub.Send(addr, Message{Type: TickMessage, Body: "boom"})
	sub.Quiesce()

	sub.Send(addr, Message{Type: TickMessage, Body: "ok"})
	sub.Quiesce()

	if got := atomic.LoadInt32(&processed); got != 1 {
		t.Fatalf("expected the mailbox to keep processing after a handler panic, got %d messages after it", got)
	}
}
