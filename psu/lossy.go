package psu

import "context"

// Lossy wraps a PSU with accessors that report 0 instead of an error when a
// read fails. Writes still return their errors.
type Lossy struct {
	*PSU
}

func NewLossy(p *PSU) Lossy {
	return Lossy{PSU: p}
}

func lossy[T any](v T, err error) T {
	if err != nil {
		var zero T
		return zero
	}
	return v
}

func (l Lossy) ReadVout(ctx context.Context) float64 {
	return lossy(l.PSU.ReadVout(ctx))
}

func (l Lossy) ReadVin(ctx context.Context) float64 {
	return lossy(l.PSU.ReadVin(ctx))
}

func (l Lossy) ReadIin(ctx context.Context) float64 {
	return lossy(l.PSU.ReadIin(ctx))
}

func (l Lossy) ReadIout(ctx context.Context) float64 {
	return lossy(l.PSU.ReadIout(ctx))
}

func (l Lossy) ReadPout(ctx context.Context) float64 {
	return lossy(l.PSU.ReadPout(ctx))
}

func (l Lossy) ReadPin(ctx context.Context) float64 {
	return lossy(l.PSU.ReadPin(ctx))
}

func (l Lossy) ReadTemperature1(ctx context.Context) float64 {
	return lossy(l.PSU.ReadTemperature1(ctx))
}

func (l Lossy) ReadTemperature2(ctx context.Context) float64 {
	return lossy(l.PSU.ReadTemperature2(ctx))
}

func (l Lossy) Vout(ctx context.Context) float64 {
	return lossy(l.PSU.Vout(ctx))
}

func (l Lossy) StatusByte(ctx context.Context) StatusByte {
	return lossy(l.PSU.StatusByte(ctx))
}

func (l Lossy) StatusWord(ctx context.Context) StatusWord {
	return lossy(l.PSU.StatusWord(ctx))
}
