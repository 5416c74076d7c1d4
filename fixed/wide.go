package fixed

import (
	"math"
	"math/bits"
)

// Wide is an unsigned 32.32 intermediate used while deriving ramp bounds.
// It is computed with 128-bit products so the narrow strategies do not lose
// precision in the square root of the first step delay.
type Wide uint64

const (
	wideFracBits = 32
	// MaxWide is the saturation value of every Wide computation.
	MaxWide Wide = math.MaxUint64
)

// WideInt converts a whole number.
func WideInt(n uint32) Wide { return Wide(uint64(n) << wideFracBits) }

// Float returns w as a float64.
func (w Wide) Float() float64 { return float64(w) / (1 << wideFracBits) }

// Ratio returns num/den. A zero denominator or a quotient above the Wide
// range saturates.
func Ratio(num, den uint64) Wide {
	if den == 0 {
		return MaxWide
	}
	qhi, qlo, _ := div128(num>>(64-wideFracBits), num<<wideFracBits, den)
	if qhi != 0 {
		return MaxWide
	}
	return Wide(qlo)
}

// ScaledSqrt returns sqrt(num/den)*mulNum/mulDen, rounded to nearest.
func ScaledSqrt(num, den, mulNum, mulDen uint64) Wide {
	if den == 0 || mulDen == 0 {
		return MaxWide
	}
	// Radicand num/den carried with 68 fractional bits so that its root
	// has 34: 32 for the result plus 2 guard bits for rounding.
	const fracBits = 2*wideFracBits + 4
	if num>>(128-fracBits) != 0 {
		return MaxWide
	}
	rhi, rlo, _ := div128(num<<(fracBits-64), 0, den)
	root := isqrt128(rhi, rlo)

	// (root*mulNum + 2*mulDen) / (4*mulDen)
	phi, plo := bits.Mul64(root, mulNum)
	if mulDen>>62 != 0 {
		return MaxWide
	}
	divisor := mulDen << 2
	var carry uint64
	plo, carry = bits.Add64(plo, divisor>>1, 0)
	phi += carry
	qhi, qlo, _ := div128(phi, plo, divisor)
	if qhi != 0 {
		return MaxWide
	}
	return Wide(qlo)
}

// div128 divides the 128-bit value hi:lo by d, returning a 128-bit quotient.
func div128(hi, lo, d uint64) (qhi, qlo, rem uint64) {
	qhi, r := hi/d, hi%d
	qlo, rem = bits.Div64(r, lo, d)
	return qhi, qlo, rem
}

// isqrt128 returns floor(sqrt(hi:lo)).
func isqrt128(hi, lo uint64) uint64 {
	if hi == 0 && lo == 0 {
		return 0
	}
	guess := math.Sqrt(float64(hi)*(1<<64) + float64(lo))
	x := uint64(math.MaxUint64)
	if guess < (1 << 64) {
		x = uint64(guess)
	}
	if x == 0 {
		x = 1
	}
	// One Newton step from any positive guess lands at or above the root,
	// after which the iteration decreases monotonically.
	x = newtonStep(hi, lo, x)
	for {
		y := newtonStep(hi, lo, x)
		if y >= x {
			return x
		}
		x = y
	}
}

// newtonStep returns floor((x + n/x) / 2), saturated to 64 bits.
func newtonStep(hi, lo, x uint64) uint64 {
	qhi, qlo, _ := div128(hi, lo, x)
	sum, carry := bits.Add64(qlo, x, 0)
	qhi += carry
	if qhi > 1 {
		return math.MaxUint64
	}
	return qhi<<63 | sum>>1
}
