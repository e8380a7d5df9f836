//go:build linux

package regi2c

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// MapDevMem maps the I2C register block at physical address base through
// /dev/mem. The returned function unmaps it.
func MapDevMem(base uintptr) (*Registers, func() error, error) {
	f, err := os.OpenFile("/dev/mem", os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("regi2c: could not open /dev/mem: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	page := uintptr(os.Getpagesize())
	aligned := base &^ (page - 1)
	offset := base - aligned
	size := offset + unsafe.Sizeof(Registers{})
	if size > page {
		size = 2 * page
	} else {
		size = page
	}
	mem, err := unix.Mmap(int(f.Fd()), int64(aligned), int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, fmt.Errorf("regi2c: could not map %#x: %w", base, err)
	}
	regs := (*Registers)(unsafe.Pointer(&mem[offset]))
	return regs, func() error {
		return unix.Munmap(mem)
	}, nil
}
