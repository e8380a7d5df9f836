package regi2c

import "sync/atomic"

// Registers mirrors the I2Cv2 register block layout (offsets 0x00..0x28).
type Registers struct {
	CR1      uint32
	CR2      uint32
	OAR1     uint32
	OAR2     uint32
	TIMINGR  uint32
	TIMEOUTR uint32
	ISR      uint32
	ICR      uint32
	PECR     uint32
	RXDR     uint32
	TXDR     uint32
}

var _ Peripheral = &Mapped{}

// Mapped is a Peripheral backed by a register block, typically one mapped
// from physical memory with MapDevMem. All accesses are 32-bit atomic loads
// and stores so none are elided or merged.
type Mapped struct {
	regs *Registers
}

func NewMapped(regs *Registers) *Mapped {
	return &Mapped{regs: regs}
}

func (m *Mapped) Enable(timing uint32) error {
	atomic.StoreUint32(&m.regs.CR1, atomic.LoadUint32(&m.regs.CR1)&^cr1PE)
	atomic.StoreUint32(&m.regs.TIMINGR, timing)
	atomic.StoreUint32(&m.regs.CR1, cr1PE)
	atomic.StoreUint32(&m.regs.CR2, 0)
	return nil
}

func (m *Mapped) Disable() error {
	atomic.StoreUint32(&m.regs.CR1, atomic.LoadUint32(&m.regs.CR1)&^cr1PE)
	return nil
}

func (m *Mapped) SetControl(c Control) {
	atomic.StoreUint32(&m.regs.CR2, c.Bits())
}

func (m *Mapped) GenerateStop() {
	atomic.StoreUint32(&m.regs.CR2, atomic.LoadUint32(&m.regs.CR2)|cr2STOP)
}

func (m *Mapped) Status() Flag {
	return Flag(atomic.LoadUint32(&m.regs.ISR))
}

func (m *Mapped) ClearFlags(f Flag) {
	atomic.StoreUint32(&m.regs.ICR, uint32(f))
}

func (m *Mapped) WriteData(b byte) {
	atomic.StoreUint32(&m.regs.TXDR, uint32(b))
}

func (m *Mapped) ReadData() byte {
	return byte(atomic.LoadUint32(&m.regs.RXDR))
}
