package fixed

import "math"

// Q20F12 is an unsigned 20.12 fixed-point number held in a uint32.
// It covers delays up to 1048575 ticks, one second at a 1MHz timer.
type Q20F12 uint32

const (
	q20FracBits = 12
	q20One      = 1 << q20FracBits
	q20Half     = q20One >> 1
)

func saturate32(v uint64) Q20F12 {
	if v > math.MaxUint32 {
		return math.MaxUint32
	}
	return Q20F12(v)
}

func (Q20F12) FromInt(n uint32) Q20F12 {
	return saturate32(uint64(n) << q20FracBits)
}

func (Q20F12) FromWide(w Wide) Q20F12 {
	const shift = wideFracBits - q20FracBits
	v := uint64(w)>>shift + (uint64(w)>>(shift-1))&1
	return saturate32(v)
}

func (Q20F12) FromFloat(f float64) Q20F12 {
	if !(f > 0) {
		return 0
	}
	v := math.Round(f * q20One)
	if v >= math.MaxUint32 {
		return math.MaxUint32
	}
	return Q20F12(v)
}

func (x Q20F12) Add(y Q20F12) Q20F12 {
	return saturate32(uint64(x) + uint64(y))
}

func (x Q20F12) Sub(y Q20F12) Q20F12 {
	if y >= x {
		return 0
	}
	return x - y
}

func (x Q20F12) Mul(y Q20F12) Q20F12 {
	return saturate32(uint64(x) * uint64(y) >> q20FracBits)
}

func (x Q20F12) Div(y Q20F12) Q20F12 {
	if y == 0 {
		return math.MaxUint32
	}
	return saturate32(uint64(x) << q20FracBits / uint64(y))
}

func (x Q20F12) Less(y Q20F12) bool { return x < y }

func (x Q20F12) Ticks() uint32 {
	return uint32((uint64(x) + q20Half) >> q20FracBits)
}

func (x Q20F12) Float() float64 { return float64(x) / q20One }

func (Q20F12) Max() float64 { return float64(math.MaxUint32) / q20One }
