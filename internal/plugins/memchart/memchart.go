// Package memchart samples system memory usage into a bounded series for
// the panel's memory chart and the introspection API.
package memchart

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
)

const memInfoPath = "/proc/meminfo"

// MemInfo carries the few /proc/meminfo fields the chart needs, in
// kibibytes.
type MemInfo struct {
	Total     uint64
	Available uint64
}

func (m MemInfo) UsedRatio() float64 {
	if m.Total == 0 {
		return 0
	}
	return float64(m.Total-m.Available) / float64(m.Total)
}

// ParseMemInfo reads the meminfo key-value format. Lines it does not
// recognize are skipped.
func ParseMemInfo(r io.Reader) (MemInfo, error) {
	var info MemInfo
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		key, rest, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}
		value, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			continue
		}
		switch key {
		case "MemTotal":
			info.Total = value
		case "MemAvailable":
			info.Available = value
		}
	}
	if err := scanner.Err(); err != nil {
		return MemInfo{}, err
	}
	if info.Total == 0 {
		return MemInfo{}, fmt.Errorf("meminfo: missing MemTotal")
	}
	return info, nil
}

// Chart keeps the most recent usage ratios. Samples is read by the API
// goroutine, so the ring is guarded.
type Chart struct {
	mu      sync.Mutex
	samples []float64
	max     int
}

func New(maxSamples int) *Chart {
	if maxSamples < 1 {
		maxSamples = 1
	}
	return &Chart{max: maxSamples}
}

func (c *Chart) Name() string { return "memchart" }

// Sample reads the current memory usage and appends it to the series.
func (c *Chart) Sample() {
	file, err := os.Open(memInfoPath)
	if err != nil {
		slog.Debug("Failed to open meminfo", "error", err)
		return
	}
	defer file.Close()

	info, err := ParseMemInfo(file)
	if err != nil {
		slog.Debug("Failed to parse meminfo", "error", err)
		return
	}
	c.Push(info.UsedRatio())
}

func (c *Chart) Push(ratio float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samples = append(c.samples, ratio)
	if len(c.samples) > c.max {
		c.samples = c.samples[len(c.samples)-c.max:]
	}
}

func (c *Chart) Samples() []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]float64, len(c.samples))
	copy(out, c.samples)
	return out
}

func (c *Chart) Close() {}
