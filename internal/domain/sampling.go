package domain

// SampleThreshold applies Rate to inputs strictly larger than MinBytes.
type SampleThreshold struct {
	MinBytes int64   `json:"min_bytes" yaml:"min_bytes" validate:"gte=0"`
	Rate     float64 `json:"rate" yaml:"rate" validate:"gt=0,lte=1"`
}

// SamplingPolicy is a step function from input file size to sampling rate.
// Thresholds are kept sorted by MinBytes descending.
type SamplingPolicy struct {
	Thresholds []SampleThreshold `json:"thresholds" yaml:"thresholds" validate:"dive"`
}

// Rate returns the rate of the largest threshold that size exceeds, or 1
// when no threshold is exceeded.
func (p SamplingPolicy) Rate(size int64) float64 {
	for _, t := range p.Thresholds {
		if size > t.MinBytes {
			return t.Rate
		}
	}
	return 1
}

// Monotonic reports whether larger thresholds carry smaller or equal rates,
// so bigger inputs are never sampled less aggressively.
func (p SamplingPolicy) Monotonic() bool {
	for i := 1; i < len(p.Thresholds); i++ {
		prev, cur := p.Thresholds[i-1], p.Thresholds[i]
		if prev.MinBytes <= cur.MinBytes || prev.Rate > cur.Rate {
			return false
		}
	}
	return true
}
