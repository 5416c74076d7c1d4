// Package fixed implements the numeric strategies a step ramp can run on.
//
// Every strategy satisfies Num, so the ramp engine is written once and
// instantiated per deployment target: Q20F12 for small MCUs with a 1MHz
// class timer, Q32F32 for any 32-bit timer, F32 where an FPU is available.
package fixed

// Num is the arithmetic capability set the ramp engine is generic over.
// Methods are pure, never allocate and never panic. Operations that would
// leave the representable range saturate instead.
type Num[T any] interface {
	comparable

	// FromInt converts a whole number.
	FromInt(n uint32) T
	// FromWide narrows a Wide value with round-to-nearest.
	FromWide(w Wide) T
	// FromFloat converts a float with round-to-nearest, for construction
	// time and the sigmoid profile only.
	FromFloat(f float64) T

	Add(y T) T
	// Sub saturates at zero.
	Sub(y T) T
	Mul(y T) T
	// Div truncates. Division by zero saturates to the maximum value.
	Div(y T) T
	Less(y T) bool

	// Ticks rounds to the nearest whole timer tick.
	Ticks() uint32
	Float() float64
	// Max is the largest representable value, as a float.
	Max() float64
}
