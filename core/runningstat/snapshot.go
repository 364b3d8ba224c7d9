package runningstat

import (
	"math"
)

// Snapshot contains a snapshot of RunningStat reading.
// Mean and Min/Max are NaN if Count is zero; Variance and Stdev are NaN if Count is less than two.
type Snapshot struct {
	Count    uint64  `json:"count"`
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
	Stdev    float64 `json:"stdev"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`

	m1 float64
	m2 float64
}

// Add combines stats with another instance.
func (s Snapshot) Add(o Snapshot) Snapshot {
	switch {
	case s.Count == 0:
		return o
	case o.Count == 0:
		return s
	}

	n := s.Count + o.Count
	aN, bN, cN := float64(s.Count), float64(o.Count), float64(n)
	delta := o.m1 - s.m1
	m1 := (aN*s.m1 + bN*o.m1) / cN
	m2 := s.m2 + o.m2 + delta*delta*aN*bN/cN
	return newSnapshot(n, m1, m2, math.Min(s.Min, o.Min), math.Max(s.Max, o.Max))
}

func newSnapshot(n uint64, m1, m2, min, max float64) (s Snapshot) {
	s.Count, s.m1, s.m2 = n, m1, m2
	s.Mean, s.Variance, s.Stdev = math.NaN(), math.NaN(), math.NaN()
	s.Min, s.Max = math.NaN(), math.NaN()
	if n > 0 {
		s.Mean = m1
		s.Min, s.Max = min, max
	}
	if n > 1 {
		s.Variance = m2 / float64(n-1)
		s.Stdev = math.Sqrt(s.Variance)
	}
	return s
}
