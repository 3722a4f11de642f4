package structuring

import "fmt"

// StructuringError is the fatal per-region failure: the region cannot be
// given structured control flow without risking wrong semantics. The driving
// pipeline catches it at the region boundary and falls back to a goto-heavy
// rendering of that region; it never aborts the surrounding decompilation.
type StructuringError struct {
	RegionAddr uint64
	Message    string
}

func (e *StructuringError) Error() string {
	return fmt.Sprintf("structuring region %#x: %s", e.RegionAddr, e.Message)
}

func (s *Structurer) errorf(format string, args ...any) *StructuringError {
	return &StructuringError{
		RegionAddr: s.region.Head.Addr(),
		Message:    fmt.Sprintf(format, args...),
	}
}
