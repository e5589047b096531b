package framework

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopRunsStagesInOrder(t *testing.T) {
	var order []Stage
	record := ControlFunc(func(cc ControlContext) error {
		order = append(order, cc.Stage())
		return nil
	})
	l := NewLoop()
	l.AddController(StageWatchdog, record)
	l.AddController(StageConfig, record)
	l.AddController(StageTransport, record)
	l.RunOnce(context.Background())
	require.Equal(t, []Stage{StageConfig, StageTransport, StageWatchdog}, order)
}

func TestLoopIterationTimeFromClock(t *testing.T) {
	now := time.Unix(1000, 0)
	var seen []time.Time
	l := NewLoop()
	l.Clock = func() time.Time { return now }
	l.AddController(StageConfig, ControlFunc(func(cc ControlContext) error {
		seen = append(seen, cc.Time())
		return nil
	}))
	l.AddController(StageWatchdog, ControlFunc(func(cc ControlContext) error {
		seen = append(seen, cc.Time())
		return nil
	}))
	l.RunOnce(context.Background())
	require.Equal(t, []time.Time{now, now}, seen)
}

type testMsg struct{ n int }

func TestLoopKeepsUntakenMessages(t *testing.T) {
	var taken []int
	takeEven := ControlFunc(func(cc ControlContext) error {
		cc.Messages().ProcessMessages(ProcessMessageFunc(func(mc MessageProcessingContext) {
			if m, ok := mc.CurrentMessage().(*testMsg); ok && m.n%2 == 0 {
				taken = append(taken, m.n)
				mc.MessageTaken()
			}
		}))
		return nil
	})
	l := NewLoop()
	l.AddController(StageConfig, takeEven)
	for n := 1; n <= 4; n++ {
		l.PostMessage(&testMsg{n: n})
	}
	l.RunOnce(context.Background())
	require.Equal(t, []int{2, 4}, taken)

	var left []int
	l = &Loop{messages: l.messages}
	l.AddController(StageConfig, ControlFunc(func(cc ControlContext) error {
		cc.Messages().ProcessMessages(ProcessMessageFunc(func(mc MessageProcessingContext) {
			left = append(left, mc.CurrentMessage().(*testMsg).n)
			mc.MessageTaken()
		}))
		return nil
	}))
	l.PostMessage(&testMsg{n: 5})
	l.RunOnce(context.Background())
	require.Equal(t, []int{1, 3, 5}, left)
}

func TestLoopTriggerNext(t *testing.T) {
	l := NewLoop()
	l.Interval = time.Hour
	iterCh := make(chan struct{}, 4)
	l.AddController(StageTransport, ControlFunc(func(cc ControlContext) error {
		iterCh <- struct{}{}
		return nil
	}))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()

	l.TriggerNext()
	select {
	case <-iterCh:
	case <-time.After(time.Second):
		t.Fatal("iteration not triggered")
	}
	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)
}

func TestLoopStartsRunnablesWithLoopControl(t *testing.T) {
	l := NewLoop()
	l.Interval = time.Hour
	ctlCh := make(chan LoopControl, 1)
	l.AddRunnable(RunFunc(func(ctx context.Context) error {
		ctlCh <- LoopCtlFrom(ctx)
		<-ctx.Done()
		return ctx.Err()
	}))
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()
	ctl := <-ctlCh
	require.NotNil(t, ctl)
	cancel()
	<-errCh
	assert.Nil(t, LoopCtlFrom(context.Background()))
}

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Add(nil).Aggregate())

	errA, errB := errors.New("a"), errors.New("b")
	err := errs.Add(errA, nil, errB).Aggregate()
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.Equal(t, "multiple errors:\na\nb", err.Error())

	var single AggregatedError
	assert.Equal(t, "a", single.Add(errA).Aggregate().Error())
}

func TestRunnerWaitIgnoresCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRunnerWith(ctx)
	boom := errors.New("boom")
	r.Go(
		NamedRun("waiter", RunFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})),
		RunFunc(func(context.Context) error { return boom }),
	)
	cancel()
	err := r.Wait()
	require.ErrorIs(t, err, boom)
}

func TestSleepCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
	require.NoError(t, Sleep(context.Background(), time.Millisecond))
}
