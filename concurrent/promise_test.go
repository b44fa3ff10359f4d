package concurrent

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromise_CompleteOnce(t *testing.T) {
	p := NewPromise[int]()
	assert.True(t, p.Complete(1))
	assert.False(t, p.Complete(2))
	assert.False(t, p.CompleteWith(fmt.Errorf("boom")))

	val, err := p.Get()
	require.NoError(t, err)
	assert.Equal(t, 1, val)
}

func TestPromise_CancelIdempotent(t *testing.T) {
	p := NewPromise[int]()
	assert.True(t, p.Cancel())
	assert.True(t, p.Cancel())
	assert.True(t, p.IsCancelled())
	assert.False(t, p.Complete(1))
}

func TestPromise_ChainedThenApply(t *testing.T) {
	p := Completed(1)
	chained := ThenApply(ThenApply(p, func(x int) int { return x + 1 }), func(x int) int { return x * 2 })
	val, err := chained.Get()
	require.NoError(t, err)
	assert.Equal(t, 4, val)
}

func TestPromise_ThenApplyPropagatesException(t *testing.T) {
	p := Failed[int](fmt.Errorf("source failure"))
	chained := ThenApply(p, func(x int) int { return x + 1 })
	_, err := chained.Get()
	require.Error(t, err)
	var execErr *ExecutionException
	require.ErrorAs(t, err, &execErr)
}

func TestCatchException_RecoversOnlyOnFailure(t *testing.T) {
	failed := Failed[int](fmt.Errorf("boom"))
	recovered := CatchException(failed, func(error) int { return 7 })
	val, err := recovered.Get()
	require.NoError(t, err)
	assert.Equal(t, 7, val)

	ok := Completed(3)
	passthrough := CatchException(ok, func(error) int { return 99 })
	val, err = passthrough.Get()
	require.NoError(t, err)
	assert.Equal(t, 3, val)
}

func TestAllOf_EmptyCompletesImmediately(t *testing.T) {
	all := AllOf()
	assert.True(t, all.IsDone())
}

func TestAllOf_WaitsForEveryThenable(t *testing.T) {
	p1 := NewPromise[int]()
	p2 := NewPromise[int]()
	p3 := NewPromise[int]()

	all := AllOf(p1, p2, p3)
	assert.False(t, all.IsDone())

	p1.Complete(1)
	p2.Complete(2)
	assert.False(t, all.IsDone())
	p3.Complete(3)

	_, err := all.GetWithTimeout(time.Second)
	require.NoError(t, err)
}

func TestAllOf_FirstExceptionWins(t *testing.T) {
	p1 := NewPromise[int]()
	p2 := NewPromise[int]()

	all := AllOf(p1, p2)
	p1.CompleteWith(fmt.Errorf("p1 failed"))
	p2.Complete(2)

	_, err := all.GetWithTimeout(time.Second)
	require.Error(t, err)
}

func TestAnyOf_FirstCompleterWins(t *testing.T) {
	p1 := NewPromise[int]()
	p2 := NewPromise[int]()
	p3 := NewPromise[int]()
	p4 := NewPromise[int]()

	any := AnyOf(p1, p2, p3, p4)
	p3.Complete(42)
	p1.Complete(1)
	p2.Complete(2)
	p4.Complete(4)

	val, err := any.GetWithTimeout(time.Second)
	require.NoError(t, err)
	assert.Equal(t, 42, val)
}

func TestOrTimeout_FiresWhenPending(t *testing.T) {
	p := NewPromise[int]()
	OrTimeout(p, 10*time.Millisecond)

	_, err := p.GetWithTimeout(time.Second)
	require.Error(t, err)
	var timeoutErr *TimeoutException
	require.ErrorAs(t, err, &timeoutErr)
}

func TestOrTimeout_DoesNotFireOnceCompleted(t *testing.T) {
	p := NewPromise[int]()
	OrTimeout(p, 20*time.Millisecond)
	p.Complete(5)

	time.Sleep(40 * time.Millisecond)
	val, err := p.Get()
	require.NoError(t, err)
	assert.Equal(t, 5, val)
}

func TestGetWithTimeout_PendingForever(t *testing.T) {
	p := NewPromise[int]()
	_, err := p.GetWithTimeout(10 * time.Millisecond)
	require.Error(t, err)
	var timeoutErr *TimeoutException
	require.ErrorAs(t, err, &timeoutErr)
}
