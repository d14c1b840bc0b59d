// Package sysinfo reads host CPU and memory figures used to size worker
// pools.
package sysinfo

import (
	"runtime"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Host is a snapshot of the machine's compute resources.
type Host struct {
	LogicalCPUs     int
	TotalMemory     uint64
	AvailableMemory uint64
}

// Probe reads the host figures. Failures fall back to runtime.NumCPU and an
// unknown (zero) memory size, with a warning.
func Probe(log zerolog.Logger) Host {
	h := Host{}
	n, err := cpu.Counts(true)
	if err != nil || n <= 0 {
		log.Warn().Err(err).Msg("Failed to count logical CPUs")
		n = runtime.NumCPU()
	}
	h.LogicalCPUs = n

	vm, err := mem.VirtualMemory()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to get memory statistics")
	} else {
		h.TotalMemory = vm.Total
		h.AvailableMemory = vm.Available
	}

	log.Info().
		Int("logical_cpus", h.LogicalCPUs).
		Uint64("total_mb", h.TotalMemory/1024/1024).
		Uint64("available_mb", h.AvailableMemory/1024/1024).
		Msg("Host resources")
	return h
}

// StateBytes is the memory one worker holds while differentiating a circuit
// on qubits qubits: forward, adjoint and scratch state vectors of 2^qubits
// complex128 amplitudes.
func StateBytes(qubits int) uint64 {
	return 3 * 16 * (uint64(1) << uint(qubits))
}

// Workers resolves the worker count. A positive configured value wins.
// Otherwise one worker per logical CPU, reduced so that the workers' state
// vectors fit in half the available memory. The result is at least 1.
func (h Host) Workers(configured, qubits int) int {
	if configured > 0 {
		return configured
	}
	n := h.LogicalCPUs
	if n <= 0 {
		n = 1
	}
	if per := StateBytes(qubits); h.AvailableMemory > 0 && per > 0 {
		if fit := int(h.AvailableMemory / 2 / per); fit < n {
			n = fit
		}
	}
	if n < 1 {
		n = 1
	}
	return n
}
