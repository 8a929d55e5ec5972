package cooldown

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		input    int
		expected string
	}{
		{0, "0s"},
		{1, "1s"},
		{59, "59s"},
		{60, "1m 0s"},
		{90, "1m 30s"},
		{1800, "30m 0s"},
		{3600, "1h 0m 0s"},
		{3661, "1h 1m 1s"},
		{-5, "0s"},
	}

	for _, tt := range tests {
		if got := Format(tt.input); got != tt.expected {
			t.Errorf("Format(%d) = %q; want %q", tt.input, got, tt.expected)
		}
	}
}

func TestTimer_CountsDownToZero(t *testing.T) {
	for _, n := range []int{1, 2, 10, 1800} {
		timer := New(n)
		for i := 0; i < n; i++ {
			assert.True(t, timer.Active())
			timer.Tick()
			assert.Equal(t, n-i-1, timer.Remaining())
		}
		assert.Equal(t, 0, timer.Remaining())
		assert.False(t, timer.Tick())
		assert.Equal(t, 0, timer.Remaining(), "timer must not go negative")
	}
}

func TestTimer_Reset(t *testing.T) {
	var timer Timer
	assert.False(t, timer.Active())
	assert.Equal(t, "0s", timer.String())

	timer.Reset(30 * time.Minute)
	assert.Equal(t, 1800, timer.Remaining())
	assert.Equal(t, "30m 0s", timer.String())

	timer.Reset(1500 * time.Millisecond)
	assert.Equal(t, 1, timer.Remaining())

	assert.Equal(t, 0, New(-3).Remaining())
}

func TestSchedule(t *testing.T) {
	var s Schedule
	assert.False(t, s.Accept(0))

	g1 := s.Arm()
	assert.True(t, s.Accept(g1))

	g2 := s.Arm()
	assert.False(t, s.Accept(g1), "superseded tick must be rejected")
	assert.True(t, s.Accept(g2))

	s.Stop()
	assert.False(t, s.Armed())
	assert.False(t, s.Accept(g2))
}

func TestRunner_TicksUntilZero(t *testing.T) {
	mock := clock.NewMock()
	var calls atomic.Int32
	r := NewRunner(mock, func(int) { calls.Add(1) })

	r.Start(context.Background(), 3*time.Second)
	require.Equal(t, 3, r.Remaining())
	done := r.Done()
	require.NotNil(t, done)

	for want := 2; want >= 0; want-- {
		mock.Add(time.Second)
		w := want
		require.Eventually(t, func() bool { return r.Remaining() == w }, time.Second, time.Millisecond)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("runner did not exit at zero")
	}

	mock.Add(5 * time.Second)
	assert.Equal(t, 0, r.Remaining())
	assert.Equal(t, int32(3), calls.Load())
}

func TestRunner_RestartSupersedes(t *testing.T) {
	mock := clock.NewMock()
	r := NewRunner(mock, nil)

	r.Start(context.Background(), 10*time.Second)
	first := r.Done()
	r.Start(context.Background(), 5*time.Second)

	select {
	case <-first:
	case <-time.After(time.Second):
		t.Fatal("previous ticker was not released")
	}

	mock.Add(time.Second)
	require.Eventually(t, func() bool { return r.Remaining() == 4 }, time.Second, time.Millisecond)
	r.Stop()
	assert.Nil(t, r.Done())
}

func TestRunner_ContextCancel(t *testing.T) {
	mock := clock.NewMock()
	r := NewRunner(mock, nil)
	ctx, cancel := context.WithCancel(context.Background())

	r.Start(ctx, time.Minute)
	done := r.Done()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("runner ignored context cancellation")
	}
	assert.Equal(t, 60, r.Remaining())
}

func TestRunner_ZeroDurationDoesNotStart(t *testing.T) {
	r := NewRunner(clock.NewMock(), nil)
	r.Start(context.Background(), 0)
	assert.Nil(t, r.Done())
	assert.Equal(t, 0, r.Remaining())
}
