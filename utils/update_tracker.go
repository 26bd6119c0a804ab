package utils

import (
	"time"

	m "github.com/Koyaani/titaniumcar/math"
)

// UpdateTracker measures the interval between successive updates of a loop,
// e.g. the perception frame rate.
type UpdateTracker struct {
	LastTime time.Time
	Time     time.Time
	DiffMA   m.MovingAverage
	Count    int
}

func (u *UpdateTracker) Init(maLength int) {
	u.LastTime = time.Now()
	u.Time = time.Now()
	u.Count = 0
	u.DiffMA.Init(maLength)
}

func (u *UpdateTracker) Update() {
	u.UpdateAt(time.Now())
}

func (u *UpdateTracker) UpdateAt(t time.Time) {
	u.LastTime = u.Time
	u.Time = t
	u.Count++
	u.DiffMA.Update(u.Time.Sub(u.LastTime).Seconds())
}

// Rate is the averaged number of updates per second.
func (u *UpdateTracker) Rate() float64 {
	if u.Count == 0 || u.DiffMA.Estimate <= 0 {
		return 0
	}
	return 1 / u.DiffMA.Estimate
}
