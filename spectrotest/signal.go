package spectrotest

import "math"

// Signal returns the sample value at time t seconds.
type Signal func(t float64) float64

// Tone is a sine at freq Hz with unit amplitude.
func Tone(freq float64) Signal {
	return func(t float64) float64 { return math.Sin(2 * math.Pi * freq * t) }
}

// Chirp is a linear sweep from f0 to f1 Hz over duration seconds.
func Chirp(f0, f1, duration float64) Signal {
	k := (f1 - f0) / duration
	return func(t float64) float64 {
		return math.Sin(2 * math.Pi * (f0*t + k*t*t/2))
	}
}

// Mix sums signals and scales the result by 1/len(signals).
func Mix(signals ...Signal) Signal {
	n := float64(len(signals))
	return func(t float64) float64 {
		var v float64
		for _, s := range signals {
			v += s(t)
		}
		return v / n
	}
}
