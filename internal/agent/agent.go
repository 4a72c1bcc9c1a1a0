package agent

import (
	"bytes"
	"context"
	"errors"
	"io"

	"gpu-snapshot/internal/config"
	"gpu-snapshot/internal/logging"
	nvmlwrap "gpu-snapshot/internal/nvml"
	"gpu-snapshot/internal/report"
	"gpu-snapshot/internal/sampling"
	"gpu-snapshot/internal/smi"
)

type Options struct {
	Config config.Config
	Logger *logging.Logger
	Stdout io.Writer
	Stderr io.Writer

	// Sampler overrides the one selected by Config.Sampler.
	Sampler sampling.Sampler
}

// Agent takes one snapshot and prints it. It owns its sampler and closes it
// at the end of Run.
type Agent struct {
	log     *logging.Logger
	sampler sampling.Sampler
	stdout  io.Writer
	stderr  io.Writer
}

func New(opts Options) (*Agent, error) {
	sampler := opts.Sampler
	if sampler == nil {
		kind, err := opts.Config.SamplerKind()
		if err != nil {
			return nil, err
		}
		switch kind {
		case config.SamplerSMI:
			sampler = smi.New(opts.Config.SMIPath, opts.Config.SMITimeout)
		default:
			sampler = nvmlwrap.New()
		}
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Agent{
		log:     log,
		sampler: sampler,
		stdout:  opts.Stdout,
		stderr:  opts.Stderr,
	}, nil
}

// Run returns the process exit code: 0 with the snapshot on stdout, or 1 with
// {"error": ...} on stderr. Nothing is written to the other stream.
func (a *Agent) Run(ctx context.Context) int {
	defer a.release()

	a.log.Info(map[string]any{"msg": "gpu sampler selected", "sampler": a.sampler.Name()})

	snap, err := a.sampler.Sample(ctx)
	if err != nil {
		return a.fail(err)
	}

	// stdout gets the whole document or nothing.
	var buf bytes.Buffer
	if err := report.WriteSuccess(&buf, report.FromSnapshot(snap)); err != nil {
		return a.fail(err)
	}
	if _, err := a.stdout.Write(buf.Bytes()); err != nil {
		a.log.Error(map[string]any{"msg": "write snapshot failed", "error": err.Error()})
		return 1
	}

	a.log.Info(map[string]any{"msg": "snapshot written", "attached_gpus": len(snap.GPUs)})
	return 0
}

func (a *Agent) fail(err error) int {
	fields := map[string]any{"msg": "snapshot failed", "error": err.Error()}
	var be *sampling.BackendError
	if errors.As(err, &be) {
		fields["op"] = be.Context()
	}
	a.log.Error(fields)

	if werr := report.WriteFailure(a.stderr, err); werr != nil {
		a.log.Error(map[string]any{"msg": "write error document failed", "error": werr.Error()})
	}
	return 1
}

// release is best effort; its error never changes the result of Run.
func (a *Agent) release() {
	if err := a.sampler.Close(); err != nil {
		a.log.Warn(map[string]any{"msg": "sampler close failed", "sampler": a.sampler.Name(), "error": err.Error()})
	}
}
