package math

// Window is a fixed size FIFO of samples. New samples enter at the front
// (index 0) and the oldest sample falls off the back, so the length never
// changes after construction.
type Window struct {
	values []float64
	head   int
}

// NewWindow returns a zero filled window of the given size.
func NewWindow(size int) *Window {
	if size < 1 {
		size = 1
	}
	return &Window{values: make([]float64, size)}
}

func (w *Window) Len() int {
	return len(w.values)
}

// Push inserts val at the front and returns the evicted oldest sample.
func (w *Window) Push(val float64) (evicted float64) {
	w.head = (w.head - 1 + len(w.values)) % len(w.values)
	evicted = w.values[w.head]
	w.values[w.head] = val
	return evicted
}

// At returns the i-th newest sample, At(0) being the latest push.
func (w *Window) At(i int) float64 {
	return w.values[(w.head+i)%len(w.values)]
}

// Values copies the samples newest first.
func (w *Window) Values() []float64 {
	res := make([]float64, len(w.values))
	for i := range res {
		res[i] = w.At(i)
	}
	return res
}

// Oldest copies the n least recent samples, newest of them first.
func (w *Window) Oldest(n int) []float64 {
	n = max(0, min(n, len(w.values)))
	return w.Values()[len(w.values)-n:]
}

func (w *Window) Reset() {
	for i := range w.values {
		w.values[i] = 0
	}
	w.head = 0
}
