package readiness

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignal_FiresOnce(t *testing.T) {
	s := newSignal()

	assert.False(t, s.Fired())
	assert.NoError(t, s.Err())

	assert.True(t, s.fire(nil))
	assert.False(t, s.fire(ErrNotReadyTimeout))

	assert.True(t, s.Fired())
	assert.NoError(t, s.Err())
}

func TestSignal_ConcurrentFire_ResolvesOnce(t *testing.T) {
	s := newSignal()

	var mu sync.Mutex
	fired := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.fire(nil) {
				mu.Lock()
				fired++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, fired)
	<-s.Done()
}
