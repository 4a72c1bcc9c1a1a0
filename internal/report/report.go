// Package report shapes GPU snapshots into the JSON document printed by
// gpu-snapshot. The layout follows the JSON rendering of `nvidia-smi -q -x`:
// numeric fields are strings carrying a unit suffix.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"gpu-snapshot/internal/sampling"
)

const bytesPerMiB = 1024 * 1024

type Utilization struct {
	GPUUtil string `json:"gpu_util"`
}

type FBMemoryUsage struct {
	Used  string `json:"used"`
	Total string `json:"total"`
}

// Reading is one device's entry under "gpu".
type Reading struct {
	Utilization   Utilization   `json:"utilization"`
	FBMemoryUsage FBMemoryUsage `json:"fb_memory_usage"`
}

// GPUList encodes as a bare object when it holds exactly one reading and as
// an array otherwise.
type GPUList []Reading

func (l GPUList) MarshalJSON() ([]byte, error) {
	switch len(l) {
	case 0:
		return []byte("[]"), nil
	case 1:
		return json.Marshal(l[0])
	default:
		return json.Marshal([]Reading(l))
	}
}

type SMILog struct {
	AttachedGPUs int     `json:"attached_gpus"`
	GPU          GPUList `json:"gpu"`
}

type Log struct {
	NvidiaSMILog SMILog `json:"nvidia_smi_log"`
}

type ErrorDoc struct {
	Error string `json:"error"`
}

// ToMiB converts bytes to whole mebibytes, rounding down.
func ToMiB(b uint64) uint64 {
	return b / bytesPerMiB
}

func NewReading(g sampling.GPUSnapshot) Reading {
	return Reading{
		Utilization: Utilization{GPUUtil: fmt.Sprintf("%d %%", g.UtilGPU)},
		FBMemoryUsage: FBMemoryUsage{
			Used:  fmt.Sprintf("%d MiB", ToMiB(g.MemUsedBytes)),
			Total: fmt.Sprintf("%d MiB", ToMiB(g.MemTotalBytes)),
		},
	}
}

func FromSnapshot(snap sampling.Snapshot) Log {
	gpus := make(GPUList, 0, len(snap.GPUs))
	for _, g := range snap.GPUs {
		gpus = append(gpus, NewReading(g))
	}
	return Log{NvidiaSMILog: SMILog{AttachedGPUs: len(gpus), GPU: gpus}}
}

func WriteSuccess(w io.Writer, l Log) error {
	return encode(w, l)
}

func WriteFailure(w io.Writer, err error) error {
	return encode(w, ErrorDoc{Error: err.Error()})
}

// encode writes v as one compact JSON line.
func encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
