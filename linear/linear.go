// Package linear implements the PMBus Linear11 and Linear16 number formats.
//
// Linear11 words carry their own exponent: bits 15..11 hold a 5-bit two's
// complement exponent and bits 10..0 an 11-bit two's complement mantissa.
// Linear16 words are a plain unsigned mantissa whose exponent comes from the
// VOUT_MODE register.
package linear

import "math"

const (
	mantissaMax = 1023
	mantissaMin = -1024
)

// Mantissa11 returns the sign-extended mantissa of a Linear11 word.
func Mantissa11(word uint16) int16 {
	m := int16(word & 0x07FF)
	if m > mantissaMax {
		m -= 2048
	}
	return m
}

// Exponent11 returns the sign-extended exponent of a Linear11 word.
func Exponent11(word uint16) int8 {
	return signExtend5(byte(word >> 11))
}

// Exponent extracts the Linear16 exponent from a VOUT_MODE value.
// The mode bits (7..5) are ignored.
func Exponent(mode byte) int8 {
	return signExtend5(mode)
}

func signExtend5(v byte) int8 {
	e := int8(v & 0x1F)
	if e > 15 {
		e -= 32
	}
	return e
}

// Decode11 converts a Linear11 word to its real value.
func Decode11(word uint16) float64 {
	return math.Ldexp(float64(Mantissa11(word)), int(Exponent11(word)))
}

// Encode11 converts value to a Linear11 word using the given exponent.
// The mantissa is truncated toward zero and clamped to [-1024, 1023].
func Encode11(value float64, exponent int8) uint16 {
	scaled := math.Trunc(math.Ldexp(value, -int(exponent)))
	var m int16
	switch {
	case math.IsNaN(scaled):
		m = 0
	case scaled > mantissaMax:
		m = mantissaMax
	case scaled < mantissaMin:
		m = mantissaMin
	default:
		m = int16(scaled)
	}
	return uint16(m)&0x07FF | uint16(byte(exponent)&0x1F)<<11
}

// Decode16 converts a Linear16 mantissa to its real value.
func Decode16(word uint16, exponent int8) float64 {
	return math.Ldexp(float64(word), int(exponent))
}

// Encode16 converts value to a Linear16 mantissa. The scaled value is
// truncated toward zero and reduced modulo 2^16; no clamping is performed,
// use Fits16 to check the range first.
func Encode16(value float64, exponent int8) uint16 {
	scaled := math.Trunc(math.Ldexp(value, -int(exponent)))
	if math.IsNaN(scaled) || math.IsInf(scaled, 0) || math.Abs(scaled) >= 1<<63 {
		return 0
	}
	return uint16(int64(scaled))
}

// Fits16 reports whether value is representable as a Linear16 mantissa with
// the given exponent without wrapping.
func Fits16(value float64, exponent int8) bool {
	scaled := math.Trunc(math.Ldexp(value, -int(exponent)))
	return scaled >= 0 && scaled <= math.MaxUint16
}
