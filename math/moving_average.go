package math

// MovingAverage is a running mean over the last size updates. The first
// update seeds every slot so the estimate is usable immediately.
type MovingAverage struct {
	values      []float64
	index       int
	initialized bool
	total       float64
	Estimate    float64
}

func (a *MovingAverage) Init(size int) {
	a.values = make([]float64, max(size, 1))
	a.initialized = false
	a.index = 0
	a.total = 0
	a.Estimate = 0
}

func (a *MovingAverage) Update(val float64) float64 {
	if !a.initialized {
		for i := range a.values {
			a.values[i] = val
		}
		a.total = val * float64(len(a.values))
		a.initialized = true
		a.Estimate = val
		return val
	}
	a.index = (a.index + 1) % len(a.values)
	a.total += val - a.values[a.index]
	a.values[a.index] = val
	a.Estimate = a.total / float64(len(a.values))
	return a.Estimate
}
