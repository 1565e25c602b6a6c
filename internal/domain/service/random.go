package service

// Random is the randomness strategy behind signal generation.
// math/rand's *Rand satisfies it.
type Random interface {
	Float64() float64
	Intn(n int) int
}
