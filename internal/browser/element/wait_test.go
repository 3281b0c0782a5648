package element_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/xkilldash9x/scalpel-webdriver/internal/browser/element"
)

func TestWaitForRunsAtLeastOnce(t *testing.T) {
	defer goleak.VerifyNone(t)

	var calls int32
	res, err := element.WaitFor(context.Background(), func() (string, error) {
		atomic.AddInt32(&calls, 1)
		return "", nil
	}, 0, 0)

	require.NoError(t, err)
	assert.Empty(t, res)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestWaitForReturnsFirstTruthyResult(t *testing.T) {
	defer goleak.VerifyNone(t)

	var calls int
	res, err := element.WaitFor(context.Background(), func() ([]int, error) {
		calls++
		if calls < 3 {
			return []int{}, nil
		}
		return []int{calls}, nil
	}, 5*time.Second, 5*time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, []int{3}, res)
	assert.Equal(t, 3, calls)
}

func TestWaitForStopsOnError(t *testing.T) {
	defer goleak.VerifyNone(t)

	boom := errors.New("boom")
	var calls int
	_, err := element.WaitFor(context.Background(), func() (bool, error) {
		calls++
		return false, boom
	}, 5*time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestWaitForTimeoutReturnsLastResult(t *testing.T) {
	defer goleak.VerifyNone(t)

	timeout := 60 * time.Millisecond
	var calls int
	start := time.Now()
	res, err := element.WaitFor(context.Background(), func() (map[string]int, error) {
		calls++
		return map[string]int{}, nil
	}, timeout, 10*time.Millisecond)

	require.NoError(t, err, "a timeout is not an error")
	assert.NotNil(t, res)
	assert.Empty(t, res)
	assert.GreaterOrEqual(t, calls, 2)
	assert.GreaterOrEqual(t, time.Since(start), timeout)
}

func TestWaitForShortensFinalSleep(t *testing.T) {
	defer goleak.VerifyNone(t)

	timeout := 300 * time.Millisecond
	interval := 250 * time.Millisecond
	var calls int
	start := time.Now()
	_, err := element.WaitFor(context.Background(), func() (int, error) {
		calls++
		return 0, nil
	}, timeout, interval)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.Less(t, elapsed, 2*interval-20*time.Millisecond,
		"the last attempt lands on the deadline, not a full interval later")
	assert.GreaterOrEqual(t, calls, 2)
}

func TestWaitForContextCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	var calls int32
	_, err := element.WaitFor(ctx, func() (bool, error) {
		if atomic.AddInt32(&calls, 1) == 2 {
			cancel()
		}
		return false, nil
	}, 10*time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, err, context.Canceled)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestIsElementCollection(t *testing.T) {
	assert.True(t, element.IsElementCollection([]element.Element{}))
	assert.True(t, element.IsElementCollection([2]int{}))
	assert.True(t, element.IsElementCollection(map[string]int{}))
	assert.False(t, element.IsElementCollection(nil))
	assert.False(t, element.IsElementCollection("abc"))
	assert.False(t, element.IsElementCollection(42))
}
