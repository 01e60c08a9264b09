package main

import (
	"log"
	"time"
)

func durationMS(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return d.Milliseconds()
}

// runShutdownStep runs fn, giving up after timeout. It reports whether the
// step timed out.
func runShutdownStep(name string, timeout time.Duration, fn func()) bool {
	if fn == nil {
		return false
	}
	started := time.Now()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()

	if timeout <= 0 {
		<-done
		log.Printf("event=shutdown_step_completed step=%s latency_ms=%d", name, durationMS(time.Since(started)))
		return false
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		log.Printf("event=shutdown_step_completed step=%s latency_ms=%d", name, durationMS(time.Since(started)))
		return false
	case <-timer.C:
		log.Printf("event=shutdown_step_timeout step=%s timeout_ms=%d", name, durationMS(timeout))
		return true
	}
}
