package nvmlwrap

import (
	"context"

	"github.com/NVIDIA/go-nvml/pkg/nvml"

	"gpu-snapshot/internal/sampling"
)

// Client implements sampling.Sampler on top of NVML (go-nvml bindings).
type Client struct {
	lib         nvml.Interface
	initialized bool
	closed      bool
}

func New() *Client {
	return NewWithLibrary(nvml.New())
}

// NewWithLibrary uses lib instead of the system libnvidia-ml.
func NewWithLibrary(lib nvml.Interface) *Client {
	return &Client{lib: lib}
}

func (c *Client) Init() error {
	if c.initialized {
		return nil
	}
	if ret := c.lib.Init(); ret != nvml.SUCCESS {
		return sampling.NewBackendError(sampling.OpInit, -1, ret)
	}
	c.initialized = true
	return nil
}

func (c *Client) Name() string { return "nvml" }

// Close shuts the library down at most once, and only after a successful
// Init: when libnvidia-ml never loaded, nvmlShutdown is an unresolved symbol.
// The shutdown result is discarded.
func (c *Client) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if !c.initialized {
		return nil
	}
	c.initialized = false
	_ = c.lib.Shutdown()
	return nil
}

func (c *Client) Sample(ctx context.Context) (sampling.Snapshot, error) {
	_ = ctx
	if err := c.Init(); err != nil {
		return sampling.Snapshot{}, err
	}

	count, ret := c.lib.DeviceGetCount()
	if ret != nvml.SUCCESS {
		return sampling.Snapshot{}, sampling.NewBackendError(sampling.OpDeviceCount, -1, ret)
	}

	snap := sampling.Snapshot{GPUs: make([]sampling.GPUSnapshot, 0, count)}
	for i := 0; i < count; i++ {
		dev, ret := c.lib.DeviceGetHandleByIndex(i)
		if ret != nvml.SUCCESS {
			return sampling.Snapshot{}, sampling.NewBackendError(sampling.OpDeviceHandle, i, ret)
		}

		util, ret := dev.GetUtilizationRates()
		if ret != nvml.SUCCESS {
			return sampling.Snapshot{}, sampling.NewBackendError(sampling.OpUtilization, i, ret)
		}

		memInfo, ret := dev.GetMemoryInfo()
		if ret != nvml.SUCCESS {
			return sampling.Snapshot{}, sampling.NewBackendError(sampling.OpMemoryInfo, i, ret)
		}

		snap.GPUs = append(snap.GPUs, sampling.GPUSnapshot{
			Index:         i,
			UtilGPU:       util.Gpu,
			MemUsedBytes:  memInfo.Used,
			MemTotalBytes: memInfo.Total,
		})
	}

	return snap, nil
}
