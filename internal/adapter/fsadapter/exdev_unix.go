//go:build unix

package fsadapter

import (
	"errors"
	"syscall"
)

func isEXDEV(err error) bool {
	return errors.Is(err, syscall.EXDEV)
}
