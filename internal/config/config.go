package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

const (
	SamplerNVML = "nvml"
	SamplerSMI  = "smi"
)

type Config struct {
	// nvml (default) or smi.
	Sampler string
	SMIPath string
	// Bounds a single nvidia-smi invocation.
	SMITimeout time.Duration

	// Diagnostic log file. Empty discards logs; stdout and stderr only ever
	// carry the snapshot document.
	LogFile string
}

func Default() Config {
	return Config{
		Sampler:    SamplerNVML,
		SMIPath:    "nvidia-smi",
		SMITimeout: 5 * time.Second,
	}
}

func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.Sampler, "sampler", c.Sampler, "GPU data source: nvml or smi")
	fs.StringVar(&c.SMIPath, "smi-path", c.SMIPath, "nvidia-smi binary used by the smi sampler")
	fs.DurationVar(&c.SMITimeout, "timeout", c.SMITimeout, "nvidia-smi query timeout")
	fs.StringVar(&c.LogFile, "log-file", c.LogFile, "Append diagnostic JSON logs to this file")
}

// SamplerKind normalizes Sampler to SamplerNVML or SamplerSMI.
func (c Config) SamplerKind() (string, error) {
	switch strings.ToLower(strings.TrimSpace(c.Sampler)) {
	case "", "nvml":
		return SamplerNVML, nil
	case "smi", "nvidia-smi", "nvidiasmi":
		return SamplerSMI, nil
	default:
		return "", fmt.Errorf("unknown sampler %q (want nvml or smi)", c.Sampler)
	}
}
