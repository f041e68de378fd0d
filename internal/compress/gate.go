package compress

import (
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"
)

// maxGatePermits caps concurrent compressions regardless of core
// count; each one holds a full decode plus candidate buffers in
// memory.
const maxGatePermits = 3

// GatePermits returns the permit count for this host:
// clamp(NumCPU-1, 1, 3).
func GatePermits() int64 {
	n := runtime.NumCPU() - 1
	if n < 1 {
		n = 1
	}
	if n > maxGatePermits {
		n = maxGatePermits
	}
	return int64(n)
}

var (
	gateOnce   sync.Once
	sharedGate *semaphore.Weighted
)

// sharedCompressionGate lazily initializes the process-wide gate.
// Waiters queue FIFO; a permit is held from acquisition to every exit
// path. Passthrough requests return before acquiring one, and the source
// file is read before acquisition.
func sharedCompressionGate() *semaphore.Weighted {
	gateOnce.Do(func() {
		sharedGate = semaphore.NewWeighted(GatePermits())
	})
	return sharedGate
}
