package board

import (
	"context"
	"testing"
	"time"
)

// producer 为空时 worker 直接吞掉事件，队列不会堆积。
func TestKafkaDispatcher_NilProducerDrains(t *testing.T) {
	d := NewKafkaDispatcher(nil, "canvas-ops", nil, KafkaDispatcherOptions{
		QueueSize: 4,
		Workers:   1,
		MaxRetry:  1,
	})

	for i := 0; i < 16; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		err := d.Enqueue(ctx, AppendEvent("lobby", Operation{ID: "op", Tool: ToolBrush}))
		cancel()
		if err != nil {
			t.Fatalf("Enqueue() #%d with a draining worker failed: %v", i, err)
		}
	}
}

// 没有 worker 消费、队列占满后，Enqueue 必须在 ctx 超时后放弃，不能卡死调用方。
func TestKafkaDispatcher_EnqueueTimesOutWhenFull(t *testing.T) {
	d := NewKafkaDispatcher(nil, "canvas-ops", nil, KafkaDispatcherOptions{
		QueueSize: 1,
		Workers:   0,
	})

	if err := d.Enqueue(context.Background(), TombstoneEvent("lobby", "op-1")); err != nil {
		t.Fatalf("Enqueue() into empty queue failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := d.Enqueue(ctx, TombstoneEvent("lobby", "op-2"))
	if err == nil {
		t.Fatalf("Enqueue() into full queue must fail")
	}
	if time.Since(start) > time.Second {
		t.Fatalf("Enqueue() blocked far past the ctx deadline")
	}
}

func TestSemaphoreControl(t *testing.T) {
	s := NewSemaphoreControl()

	if err := s.Release(); err == nil {
		t.Fatalf("Release() without Acquire() must fail")
	}
	if err := s.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() failed: %v", err)
	}
	if err := s.Release(); err != nil {
		t.Fatalf("Release() after Acquire() failed: %v", err)
	}

	// 占满后 Acquire 应在 ctx 超时后返回错误
	for i := 0; i < MaxSemaphore; i++ {
		if err := s.Acquire(context.Background()); err != nil {
			t.Fatalf("Acquire() #%d failed: %v", i, err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := s.Acquire(ctx); err == nil {
		t.Fatalf("Acquire() on a full semaphore must time out")
	}
}
