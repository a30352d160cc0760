package hardware

import (
	"runtime"
	"sync"

	"github.com/shirou/gopsutil/v3/cpu"
	"go.uber.org/zap"

	"github.com/lk2023060901/model-serializer-go/pkg/log"
)

var (
	cpuOnce sync.Once
	cpuNum  int
)

// GetCPUNum 返回主机逻辑 CPU 核心数，结果会被缓存。
// gopsutil 获取失败时退回 runtime.NumCPU。
func GetCPUNum() int {
	cpuOnce.Do(func() {
		n, err := cpu.Counts(true)
		if err != nil || n <= 0 {
			log.Warn("failed to get cpu counts, fallback to runtime.NumCPU", zap.Error(err))
			n = runtime.NumCPU()
		}
		cpuNum = n
	})
	return cpuNum
}
