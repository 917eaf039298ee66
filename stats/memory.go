//go:build !js

package stats

import (
	"os"
	"sync"

	"github.com/shirou/gopsutil/v3/process"
)

var (
	selfOnce sync.Once
	self     *process.Process
	selfErr  error
)

// ProcessMemory returns the resident set size of this process.
func ProcessMemory() (uint64, error) {
	selfOnce.Do(func() {
		self, selfErr = process.NewProcess(int32(os.Getpid()))
	})
	if selfErr != nil {
		return 0, selfErr
	}
	info, err := self.MemoryInfo()
	if err != nil {
		return 0, err
	}
	return info.RSS, nil
}
