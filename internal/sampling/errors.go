package sampling

import "fmt"

// Backend operations reported in BackendError.Op.
const (
	OpInit         = "init"
	OpDeviceCount  = "device_count"
	OpDeviceHandle = "device_handle"
	OpUtilization  = "utilization"
	OpMemoryInfo   = "memory_info"
	OpExec         = "exec"
	OpParse        = "parse"
)

// BackendError is any failure surfaced by the management backend. Error
// returns the backend's own description unchanged; Op and Index are kept for
// diagnostics.
type BackendError struct {
	Op    string
	Index int
	Err   error
}

// NewBackendError wraps err for op. Index is -1 for session-wide operations.
func NewBackendError(op string, index int, err error) *BackendError {
	return &BackendError{Op: op, Index: index, Err: err}
}

func (e *BackendError) Error() string {
	if e.Err == nil {
		return e.Op + " failed"
	}
	return e.Err.Error()
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// Context renders the operation and device index, e.g. "utilization index=3".
func (e *BackendError) Context() string {
	if e.Index < 0 {
		return e.Op
	}
	return fmt.Sprintf("%s index=%d", e.Op, e.Index)
}
