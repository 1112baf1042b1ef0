package dblock

import (
	"testing"
	"time"
)

func TestAcquireIsExclusive(t *testing.T) {
	t.Setenv("CASHDESK_TEST_DB_LOCK", "127.0.0.1:45433")

	release := Acquire()
	acquired := make(chan func(), 1)
	go func() { acquired <- Acquire() }()

	select {
	case <-acquired:
		t.Fatal("second Acquire succeeded while the lock was held")
	case <-time.After(150 * time.Millisecond):
	}

	release()
	select {
	case second := <-acquired:
		second()
	case <-time.After(2 * time.Second):
		t.Fatal("second Acquire did not proceed after release")
	}
}
