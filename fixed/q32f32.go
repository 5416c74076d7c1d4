package fixed

import (
	"math"
	"math/bits"
)

// Q32F32 is an unsigned 32.32 fixed-point number held in a uint64. Its
// integer part spans the whole range of a 32-bit hardware timer.
type Q32F32 uint64

const (
	q32FracBits = 32
	q32One      = 1 << q32FracBits
	q32Half     = q32One >> 1
)

func (Q32F32) FromInt(n uint32) Q32F32 {
	return Q32F32(uint64(n) << q32FracBits)
}

func (Q32F32) FromWide(w Wide) Q32F32 { return Q32F32(w) }

func (Q32F32) FromFloat(f float64) Q32F32 {
	if !(f > 0) {
		return 0
	}
	v := math.Round(f * q32One)
	if v >= math.MaxUint64 {
		return math.MaxUint64
	}
	return Q32F32(v)
}

func (x Q32F32) Add(y Q32F32) Q32F32 {
	sum, carry := bits.Add64(uint64(x), uint64(y), 0)
	if carry != 0 {
		return math.MaxUint64
	}
	return Q32F32(sum)
}

func (x Q32F32) Sub(y Q32F32) Q32F32 {
	if y >= x {
		return 0
	}
	return x - y
}

func (x Q32F32) Mul(y Q32F32) Q32F32 {
	hi, lo := bits.Mul64(uint64(x), uint64(y))
	if hi>>q32FracBits != 0 {
		return math.MaxUint64
	}
	return Q32F32(hi<<q32FracBits | lo>>q32FracBits)
}

func (x Q32F32) Div(y Q32F32) Q32F32 {
	hi, lo := uint64(x)>>q32FracBits, uint64(x)<<q32FracBits
	if hi >= uint64(y) {
		// Covers y == 0 as well as a quotient wider than 64 bits.
		return math.MaxUint64
	}
	q, _ := bits.Div64(hi, lo, uint64(y))
	return Q32F32(q)
}

func (x Q32F32) Less(y Q32F32) bool { return x < y }

func (x Q32F32) Ticks() uint32 {
	v := uint64(x)>>q32FracBits + (uint64(x)>>(q32FracBits-1))&1
	if v > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}

func (x Q32F32) Float() float64 { return float64(x) / q32One }

func (Q32F32) Max() float64 { return float64(math.MaxUint64) / q32One }
