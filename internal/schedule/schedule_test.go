package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

type fakeProber struct {
	calls int32
	err   error
}

func (f *fakeProber) Probe(ctx context.Context) error {
	atomic.AddInt32(&f.calls, 1)
	return f.err
}

type fakeCompactor struct {
	shouldRebuild bool
	rebuildCalls  int32
	rebuiltCount  int
}

func (f *fakeCompactor) ShouldRebuild() bool { return f.shouldRebuild }
func (f *fakeCompactor) Rebuild() int {
	atomic.AddInt32(&f.rebuildCalls, 1)
	return f.rebuiltCount
}

func TestScheduler_RunProbeInvokesProber(t *testing.T) {
	prober := &fakeProber{}
	s := New(prober, nil, nil)

	s.runProbe(t.Context())

	if atomic.LoadInt32(&prober.calls) != 1 {
		t.Errorf("expected Probe to be called once, got %d", prober.calls)
	}
}

func TestScheduler_RunProbeToleratesFailure(t *testing.T) {
	prober := &fakeProber{err: errors.New("model unreachable")}
	s := New(prober, nil, nil)

	s.runProbe(t.Context()) // must not panic

	if atomic.LoadInt32(&prober.calls) != 1 {
		t.Errorf("expected Probe to be called once, got %d", prober.calls)
	}
}

func TestScheduler_RunCompactionSkipsWhenNotNeeded(t *testing.T) {
	compactor := &fakeCompactor{shouldRebuild: false}
	s := New(nil, compactor, nil)

	s.runCompaction()

	if atomic.LoadInt32(&compactor.rebuildCalls) != 0 {
		t.Error("expected Rebuild not to be called when ShouldRebuild() is false")
	}
}

func TestScheduler_RunCompactionRebuildsWhenNeeded(t *testing.T) {
	compactor := &fakeCompactor{shouldRebuild: true, rebuiltCount: 3}
	s := New(nil, compactor, nil)

	s.runCompaction()

	if atomic.LoadInt32(&compactor.rebuildCalls) != 1 {
		t.Error("expected Rebuild to be called once when ShouldRebuild() is true")
	}
}

func TestScheduler_StartSkipsNilDependencies(t *testing.T) {
	s := New(nil, nil, nil)
	if err := s.Start(t.Context()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Stop(t.Context())
}

func TestScheduler_StartRegistersBothJobsWithoutError(t *testing.T) {
	s := New(&fakeProber{}, &fakeCompactor{}, nil)
	if err := s.Start(t.Context()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Stop(t.Context())
}
