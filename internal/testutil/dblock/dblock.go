// Package dblock serialises test packages that truncate the shared test database.
package dblock

import (
	"net"
	"os"
	"time"
)

const defaultLockAddr = "127.0.0.1:45432"

// Acquire blocks until this process owns the lock and returns its release func.
// CASHDESK_TEST_DB_LOCK overrides the loopback address used as the mutex.
func Acquire() func() {
	addr := os.Getenv("CASHDESK_TEST_DB_LOCK")
	if addr == "" {
		addr = defaultLockAddr
	}
	for {
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			return func() { ln.Close() }
		}
		time.Sleep(50 * time.Millisecond)
	}
}
