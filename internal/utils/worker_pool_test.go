package utils

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkerPool_RunsJobsInOrderWithOneWorker(t *testing.T) {
	pool := NewWorkerPool(1)

	var mu sync.Mutex
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		assert.True(t, pool.Submit(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}))
	}
	pool.Shutdown()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestWorkerPool_ShutdownWaitsAndRejects(t *testing.T) {
	pool := NewWorkerPool(3)

	var done int32
	for i := 0; i < 10; i++ {
		pool.Submit(func() { atomic.AddInt32(&done, 1) })
	}
	pool.Shutdown()
	assert.Equal(t, int32(10), atomic.LoadInt32(&done))

	assert.False(t, pool.Submit(func() { atomic.AddInt32(&done, 1) }))
	pool.Shutdown()
	assert.Equal(t, int32(10), atomic.LoadInt32(&done))
}

func TestNewWorkerPool_AtLeastOneWorker(t *testing.T) {
	pool := NewWorkerPool(0)
	ran := make(chan struct{})
	pool.Submit(func() { close(ran) })
	<-ran
	pool.Shutdown()
}
