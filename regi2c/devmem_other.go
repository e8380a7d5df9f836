//go:build !linux

package regi2c

import (
	"errors"
)

// MapDevMem is only available on linux.
func MapDevMem(base uintptr) (*Registers, func() error, error) {
	return nil, nil, errors.New("regi2c: /dev/mem mapping is only supported on linux")
}
