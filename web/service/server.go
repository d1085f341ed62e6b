package service

import (
	"runtime"
	"strconv"
	"time"

	"github.com/hivecrest/member-api/logger"
	"github.com/hivecrest/member-api/web/global"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
)

// Status carries host and process health reported by the status endpoint.
type Status struct {
	T        time.Time `json:"-"`
	Cpu      float64   `json:"cpu"`
	CpuCores int       `json:"cpuCores"`
	Mem      struct {
		Current uint64 `json:"current"`
		Total   uint64 `json:"total"`
	} `json:"mem"`
	Loads      []float64 `json:"loads"`
	HostUptime uint64    `json:"uptime"`
	AppStats   struct {
		Threads uint32 `json:"threads"`
		Mem     uint64 `json:"mem"`
		Uptime  uint64 `json:"uptime"`
		Jobs    int    `json:"jobs"`
	} `json:"appStats"`
}

var appStartTime = time.Now()

// ServerService reports process and host status for the health endpoints.
type ServerService struct{}

// GetStatus collects a point-in-time snapshot of host and process health.
// Collection failures are logged and leave the affected field zeroed; the
// endpoint stays up even when a probe fails.
func (s *ServerService) GetStatus() *Status {
	now := time.Now()
	status := &Status{T: now}

	if percents, err := cpu.Percent(0, false); err != nil {
		logger.Warning("get cpu percent failed:", err)
	} else if len(percents) > 0 {
		status.Cpu = percents[0]
	}
	status.CpuCores = runtime.NumCPU()

	if memInfo, err := mem.VirtualMemory(); err != nil {
		logger.Warning("get virtual memory failed:", err)
	} else {
		status.Mem.Current = memInfo.Used
		status.Mem.Total = memInfo.Total
	}

	if avg, err := load.Avg(); err != nil {
		logger.Warning("get load avg failed:", err)
	} else {
		status.Loads = []float64{avg.Load1, avg.Load5, avg.Load15}
	}

	if uptime, err := host.Uptime(); err != nil {
		logger.Warning("get host uptime failed:", err)
	} else {
		status.HostUptime = uptime
	}

	var rtm runtime.MemStats
	runtime.ReadMemStats(&rtm)
	status.AppStats.Mem = rtm.Sys
	status.AppStats.Threads = uint32(runtime.NumGoroutine())
	status.AppStats.Uptime = uint64(now.Sub(appStartTime).Seconds())

	if server := global.GetWebServer(); server != nil && server.GetCron() != nil {
		status.AppStats.Jobs = len(server.GetCron().Entries())
	}

	return status
}

// GetLogs returns up to count recent log lines at or below level from the
// in-memory buffer.
func (s *ServerService) GetLogs(count string, level string) []string {
	c, err := strconv.Atoi(count)
	if err != nil {
		c = 50
	}
	return logger.GetLogs(c, level)
}
