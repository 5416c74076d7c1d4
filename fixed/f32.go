package fixed

import "math"

// F32 is the floating-point fallback for targets with a hardware FPU.
type F32 float32

func (F32) FromInt(n uint32) F32 { return F32(n) }

func (F32) FromWide(w Wide) F32 { return F32(w.Float()) }

func (F32) FromFloat(f float64) F32 {
	if !(f > 0) {
		return 0
	}
	if f > math.MaxFloat32 {
		return math.MaxFloat32
	}
	return F32(f)
}

func (x F32) Add(y F32) F32 {
	s := x + y
	if s > math.MaxFloat32 {
		return math.MaxFloat32
	}
	return s
}

func (x F32) Sub(y F32) F32 {
	if y >= x {
		return 0
	}
	return x - y
}

func (x F32) Mul(y F32) F32 {
	p := x * y
	if p > math.MaxFloat32 {
		return math.MaxFloat32
	}
	return p
}

func (x F32) Div(y F32) F32 {
	if y <= 0 {
		return math.MaxFloat32
	}
	q := x / y
	if q > math.MaxFloat32 {
		return math.MaxFloat32
	}
	return q
}

func (x F32) Less(y F32) bool { return x < y }

func (x F32) Ticks() uint32 {
	v := math.Floor(float64(x) + 0.5)
	if v >= math.MaxUint32 {
		return math.MaxUint32
	}
	if v <= 0 {
		return 0
	}
	return uint32(v)
}

func (x F32) Float() float64 { return float64(x) }

func (F32) Max() float64 { return math.MaxFloat32 }
