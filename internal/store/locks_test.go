package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutexSerializesPerKey(t *testing.T) {
	km := NewKeyedMutex()

	var wg sync.WaitGroup
	var first, second int
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			km.Lock(1)
			defer km.Unlock(1)
			first++
		}()
		go func() {
			defer wg.Done()
			km.Lock(2)
			defer km.Unlock(2)
			second++
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, first)
	assert.Equal(t, 100, second)
}
