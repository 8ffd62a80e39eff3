package exec

import (
	"testing"
	"time"

	"github.com/cogentcore/webgpu/wgpu"
)

// fakeSubmitter counts submissions and lets tests script how many wait
// attempts time out before the queue drains.
type fakeSubmitter struct {
	encoders     int
	finishes     int
	submits      int
	waits        int
	waitTimeouts int // attempts that report timeout before success
}

func (f *fakeSubmitter) CreateCommandEncoder(label string) (*wgpu.CommandEncoder, error) {
	f.encoders++
	return nil, nil
}

func (f *fakeSubmitter) Finish(encoder *wgpu.CommandEncoder) (*wgpu.CommandBuffer, error) {
	f.finishes++
	return nil, nil
}

func (f *fakeSubmitter) Submit(buffer *wgpu.CommandBuffer) {
	f.submits++
}

func (f *fakeSubmitter) Wait(timeout time.Duration) bool {
	f.waits++
	return f.waits > f.waitTimeouts
}

func TestFullCycleLeavesContextReusable(t *testing.T) {
	sub := &fakeSubmitter{}
	ctx := NewContext(sub, WithWaitTimeout(time.Millisecond))

	for cycle := 0; cycle < 3; cycle++ {
		if err := ctx.Begin(); err != nil {
			t.Fatalf("cycle %d: Begin: %v", cycle, err)
		}
		if ctx.State() != StateRecording {
			t.Fatalf("cycle %d: expected Recording, got %s", cycle, ctx.State())
		}
		if err := ctx.End(); err != nil {
			t.Fatalf("cycle %d: End: %v", cycle, err)
		}
		if err := ctx.Submit(); err != nil {
			t.Fatalf("cycle %d: Submit: %v", cycle, err)
		}
		if err := ctx.Wait(); err != nil {
			t.Fatalf("cycle %d: Wait: %v", cycle, err)
		}
		if ctx.State() != StateSubmittable {
			t.Fatalf("cycle %d: expected Submittable after Wait, got %s", cycle, ctx.State())
		}
		if err := ctx.Reset(); err != nil {
			t.Fatalf("cycle %d: Reset: %v", cycle, err)
		}
		if ctx.State() != StateInitialized {
			t.Fatalf("cycle %d: expected Initialized after Reset, got %s", cycle, ctx.State())
		}
	}
	if sub.submits != 3 {
		t.Errorf("expected 3 submissions, got %d", sub.submits)
	}
}

func TestOutOfOrderOperationsRejected(t *testing.T) {
	ctx := NewContext(&fakeSubmitter{}, WithWaitTimeout(time.Millisecond))

	if err := ctx.End(); err == nil {
		t.Error("End without Begin should fail")
	}
	if err := ctx.Submit(); err == nil {
		t.Error("Submit without End should fail")
	}
	if err := ctx.Reset(); err == nil {
		t.Error("Reset from Initialized should fail")
	}

	if err := ctx.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := ctx.Begin(); err == nil {
		t.Error("Begin while Recording should fail")
	}
	if err := ctx.Submit(); err == nil {
		t.Error("Submit while Recording should fail")
	}
	if err := ctx.Wait(); err == nil {
		t.Error("Wait while Recording should fail")
	}
}

func TestWaitNoOpWhenIdle(t *testing.T) {
	sub := &fakeSubmitter{}
	ctx := NewContext(sub, WithWaitTimeout(time.Millisecond))

	if err := ctx.Wait(); err != nil {
		t.Fatalf("Wait from Initialized should be a no-op, got %v", err)
	}
	if sub.waits != 0 {
		t.Errorf("idle Wait should not touch the queue, got %d wait calls", sub.waits)
	}
	if ctx.State() != StateInitialized {
		t.Errorf("expected Initialized, got %s", ctx.State())
	}
}

func TestWaitRetriesThroughTimeouts(t *testing.T) {
	sub := &fakeSubmitter{waitTimeouts: 2}
	ctx := NewContext(sub, WithWaitTimeout(time.Millisecond), WithWaitRetries(5))

	if err := ctx.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := ctx.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	if err := ctx.Submit(); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := ctx.Wait(); err != nil {
		t.Fatalf("Wait should recover after transient timeouts, got %v", err)
	}
	if sub.waits != 3 {
		t.Errorf("expected 3 wait attempts, got %d", sub.waits)
	}
}

func TestWaitFailsAfterRetryBudget(t *testing.T) {
	sub := &fakeSubmitter{waitTimeouts: 100}
	ctx := NewContext(sub, WithWaitTimeout(time.Millisecond), WithWaitRetries(3))

	if err := ctx.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := ctx.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	if err := ctx.Submit(); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := ctx.Wait(); err == nil {
		t.Fatal("Wait should fail once the retry budget is exhausted")
	}
	if sub.waits != 3 {
		t.Errorf("expected exactly 3 wait attempts, got %d", sub.waits)
	}
}

func TestResetDiscardsBufferForFreshRecording(t *testing.T) {
	sub := &fakeSubmitter{}
	ctx := NewContext(sub, WithWaitTimeout(time.Millisecond))

	if err := ctx.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := ctx.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	if err := ctx.Reset(); err != nil {
		t.Fatalf("Reset from Submittable: %v", err)
	}
	if err := ctx.Begin(); err != nil {
		t.Fatalf("Begin after Reset: %v", err)
	}
	if sub.encoders != 2 {
		t.Errorf("expected 2 encoders, got %d", sub.encoders)
	}
	if sub.submits != 0 {
		t.Errorf("discarded buffer must never be submitted, got %d submits", sub.submits)
	}
}
