package smi

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"gpu-snapshot/internal/sampling"
)

const (
	defaultBinary  = "nvidia-smi"
	defaultTimeout = 5 * time.Second

	bytesPerMiB = 1024 * 1024
)

// Sampler implements sampling.Sampler by shelling out to nvidia-smi.
type Sampler struct {
	BinaryPath string
	Timeout    time.Duration
}

func New(binaryPath string, timeout time.Duration) *Sampler {
	if strings.TrimSpace(binaryPath) == "" {
		binaryPath = defaultBinary
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Sampler{BinaryPath: binaryPath, Timeout: timeout}
}

func (s *Sampler) Name() string { return "nvidia-smi" }

func (s *Sampler) Close() error { return nil }

func (s *Sampler) Sample(ctx context.Context) (sampling.Snapshot, error) {
	qctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	out, err := s.run(qctx,
		"--query-gpu=index,utilization.gpu,memory.used,memory.total",
		"--format=csv,noheader,nounits",
	)
	if err != nil {
		return sampling.Snapshot{}, err
	}

	gpus, err := parseGPUs(out)
	if err != nil {
		return sampling.Snapshot{}, err
	}
	return sampling.Snapshot{GPUs: gpus}, nil
}

func (s *Sampler) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, s.BinaryPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if se := strings.TrimSpace(stderr.String()); se != "" {
			err = errors.New(se)
		} else if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%s timed out after %s", s.BinaryPath, s.Timeout)
		}
		return nil, sampling.NewBackendError(sampling.OpExec, -1, err)
	}
	return out, nil
}

// parseGPUs reads "index, util, used MiB, total MiB" rows. Rows keep the
// order nvidia-smi printed them in, which is device index order. Blank lines
// are skipped.
func parseGPUs(b []byte) ([]sampling.GPUSnapshot, error) {
	gpus := []sampling.GPUSnapshot{}
	scanner := bufio.NewScanner(bytes.NewReader(b))
	for row := 0; scanner.Scan(); {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		g, err := parseRow(row, line)
		if err != nil {
			return nil, err
		}
		gpus = append(gpus, g)
		row++
	}
	if err := scanner.Err(); err != nil {
		return nil, sampling.NewBackendError(sampling.OpParse, -1, err)
	}
	return gpus, nil
}

func parseRow(row int, line string) (sampling.GPUSnapshot, error) {
	cols := strings.Split(line, ",")
	if len(cols) != 4 {
		return sampling.GPUSnapshot{}, sampling.NewBackendError(sampling.OpParse, row,
			fmt.Errorf("unexpected nvidia-smi row %q", line))
	}
	for i := range cols {
		cols[i] = strings.TrimSpace(cols[i])
	}

	idx, err := strconv.Atoi(cols[0])
	if err != nil {
		return sampling.GPUSnapshot{}, parseError(row, "index", cols[0])
	}
	utilGPU, err := parseUtil(cols[1])
	if err != nil {
		return sampling.GPUSnapshot{}, parseError(row, "utilization.gpu", cols[1])
	}
	memUsedMiB, err := strconv.ParseUint(cols[2], 10, 64)
	if err != nil {
		return sampling.GPUSnapshot{}, parseError(row, "memory.used", cols[2])
	}
	memTotalMiB, err := strconv.ParseUint(cols[3], 10, 64)
	if err != nil {
		return sampling.GPUSnapshot{}, parseError(row, "memory.total", cols[3])
	}

	return sampling.GPUSnapshot{
		Index:         idx,
		UtilGPU:       utilGPU,
		MemUsedBytes:  memUsedMiB * bytesPerMiB,
		MemTotalBytes: memTotalMiB * bytesPerMiB,
	}, nil
}

// Some boards report "[N/A]" for utilization.
func parseUtil(v string) (uint32, error) {
	if strings.EqualFold(v, "[N/A]") || strings.EqualFold(v, "N/A") {
		return 0, nil
	}
	u, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(u), nil
}

func parseError(row int, field, value string) error {
	return sampling.NewBackendError(sampling.OpParse, row,
		fmt.Errorf("invalid %s value %q from nvidia-smi", field, value))
}
