package registry

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutex_SerializesOneKey(t *testing.T) {
	k := newKeyedMutex()
	var inside, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("10.5061/A")
			n := atomic.AddInt32(&inside, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), peak)
	assert.Equal(t, 0, k.size())
}

func TestKeyedMutex_KeysIndependent(t *testing.T) {
	k := newKeyedMutex()
	unlockA := k.Lock("10.5061/A")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := k.Lock("10.5061/B")
		unlock()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on B blocked behind A")
	}
	assert.Equal(t, 1, k.size())
}
