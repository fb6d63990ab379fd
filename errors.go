package s1

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSetting reports a rail voltage that is out of range or not
	// allowed in the current PMIC configuration. The request can be retried
	// with a corrected value.
	ErrInvalidSetting = errors.New("invalid setting")

	// ErrFlashMismatch reports a flash whose capacity ID is not the one the
	// module is built with. It points to wrong hardware, retrying won't help.
	ErrFlashMismatch = errors.New("flash device mismatch")

	// ErrPMICMismatch reports an unexpected PMIC chip ID.
	ErrPMICMismatch = errors.New("pmic device mismatch")
)

// BusError is a transport failure on the PMIC or flash bus. A sequence that
// fails with a BusError leaves the hardware in an unspecified state.
type BusError struct {
	Dev string // "pmic" or "flash"
	Op  string
	Err error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Dev, e.Op, e.Err)
}

func (e *BusError) Unwrap() error { return e.Err }
