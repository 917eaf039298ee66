//go:build js

package stats

import "runtime"

// ProcessMemory returns the Go heap in use; a browser tab has no resident
// set to ask for.
func ProcessMemory() (uint64, error) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapAlloc, nil
}
