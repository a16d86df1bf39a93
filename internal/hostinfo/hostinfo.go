// Package hostinfo describes the machine a sweep ran on, so encoding
// times from different hosts are not compared blindly.
package hostinfo

import (
	"context"
	"encoding/json"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/banshee-data/roiqp/internal/monitoring"
)

// Info is a snapshot of the host.
type Info struct {
	Hostname      string `json:"hostname"`
	OS            string `json:"os"`
	Platform      string `json:"platform,omitempty"`
	KernelVersion string `json:"kernel_version,omitempty"`
	Arch          string `json:"arch"`
	CPUModel      string `json:"cpu_model,omitempty"`
	LogicalCPUs   int    `json:"logical_cpus"`
	PhysicalCPUs  int    `json:"physical_cpus,omitempty"`
	MemoryTotal   uint64 `json:"memory_total,omitempty"`
	GoVersion     string `json:"go_version"`
}

// Collect gathers what it can. Probes that fail leave their fields at the
// runtime fallbacks; Collect itself never fails.
func Collect(ctx context.Context) Info {
	info := Info{
		OS:          runtime.GOOS,
		Arch:        runtime.GOARCH,
		LogicalCPUs: runtime.NumCPU(),
		GoVersion:   runtime.Version(),
	}
	if name, err := os.Hostname(); err == nil {
		info.Hostname = name
	}

	if h, err := host.InfoWithContext(ctx); err == nil {
		info.Platform = h.Platform
		info.KernelVersion = h.KernelVersion
		if h.Hostname != "" {
			info.Hostname = h.Hostname
		}
	} else {
		monitoring.Debugf("hostinfo: host: %v", err)
	}

	if n, err := cpu.CountsWithContext(ctx, true); err == nil && n > 0 {
		info.LogicalCPUs = n
	}
	if n, err := cpu.CountsWithContext(ctx, false); err == nil {
		info.PhysicalCPUs = n
	}
	if cpus, err := cpu.InfoWithContext(ctx); err == nil && len(cpus) > 0 {
		info.CPUModel = cpus[0].ModelName
	} else if err != nil {
		monitoring.Debugf("hostinfo: cpu: %v", err)
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info.MemoryTotal = vm.Total
	} else {
		monitoring.Debugf("hostinfo: memory: %v", err)
	}
	return info
}

// JSON returns the snapshot encoded for a run record.
func (i Info) JSON() json.RawMessage {
	b, err := json.Marshal(i)
	if err != nil {
		return nil
	}
	return b
}
