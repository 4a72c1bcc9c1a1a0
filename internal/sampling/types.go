package sampling

type GPUSnapshot struct {
	Index         int
	UtilGPU       uint32
	MemUsedBytes  uint64
	MemTotalBytes uint64
}

type Snapshot struct {
	GPUs []GPUSnapshot
}
