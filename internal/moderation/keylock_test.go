package moderation

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyLockReleases(t *testing.T) {
	k := newKeyLock()

	unlockA := k.Lock(1)
	unlockB := k.Lock(2)
	assert.Equal(t, 2, k.size())

	unlockA()
	unlockB()
	assert.Zero(t, k.size())
}

func TestKeyLockSerializesSameKey(t *testing.T) {
	k := newKeyLock()
	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock(7)
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Zero(t, k.size())
}
