package logger

import (
	"sync"
	"testing"
)

func TestWithFieldInitialisesOnceUnderConcurrency(t *testing.T) {
	Log = nil
	fallback = sync.Once{}
	t.Setenv("LOG_LEVEL", "error")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			WithField("worker", i).Debug("quiet")
		}(i)
	}
	wg.Wait()

	if Log == nil {
		t.Fatal("expected logger to be initialised")
	}
	first := Log
	WithFields(map[string]interface{}{"again": true}).Debug("quiet")
	if Log != first {
		t.Fatal("fallback init must not replace the logger")
	}
}
