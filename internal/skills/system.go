package skills

import (
	"fmt"
	"runtime"
	"time"
)

type SystemMemory struct {
	Used  string `json:"used"`
	Total string `json:"total"`
}

type SystemResult struct {
	Type     Kind         `json:"type"`
	Status   string       `json:"status"`
	Uptime   string       `json:"uptime"`
	Memory   SystemMemory `json:"memory"`
	Runtime  string       `json:"runtime"`
	Platform string       `json:"platform"`
	Skills   []string     `json:"skills"`
}

// System reports process uptime, memory usage and the available skill names.
func (s *Service) System() SystemResult {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return SystemResult{
		Type:   KindSystem,
		Status: "online",
		Uptime: formatUptime(time.Since(s.startedAt)),
		Memory: SystemMemory{
			Used:  fmt.Sprintf("%d MB", mem.HeapAlloc/1024/1024),
			Total: fmt.Sprintf("%d MB", mem.HeapSys/1024/1024),
		},
		Runtime:  runtime.Version(),
		Platform: runtime.GOOS,
		Skills:   Names,
	}
}

func formatUptime(d time.Duration) string {
	secs := int(d.Seconds())
	return fmt.Sprintf("%dh %dm %ds", secs/3600, (secs%3600)/60, secs%60)
}
