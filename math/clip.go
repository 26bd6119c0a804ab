package math

func Clip(val, lo, hi float64) float64 {
	return max(lo, min(hi, val))
}

// Unit clips val to the normalized control range [-1, 1].
func Unit(val float64) float64 {
	return Clip(val, -1, 1)
}
