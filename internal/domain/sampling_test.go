package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const gb = int64(1) << 30

func testPolicy() SamplingPolicy {
	return SamplingPolicy{Thresholds: []SampleThreshold{
		{MinBytes: 10 * gb, Rate: 0.01},
		{MinBytes: 5 * gb, Rate: 0.02},
		{MinBytes: 2 * gb, Rate: 0.05},
		{MinBytes: 1 * gb, Rate: 0.1},
	}}
}

func TestSamplingPolicy_Rate(t *testing.T) {
	p := testPolicy()

	tests := []struct {
		name     string
		size     int64
		expected float64
	}{
		{"12 GB takes the largest branch", 12 * gb, 0.01},
		{"exactly 10 GB is not above the threshold", 10 * gb, 0.02},
		{"6 GB", 6 * gb, 0.02},
		{"3 GB", 3 * gb, 0.05},
		{"1.5 GB", gb + gb/2, 0.1},
		{"small file is kept whole", 200 << 20, 1},
		{"empty file", 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, p.Rate(tt.size))
		})
	}
}

func TestSamplingPolicy_Monotonic(t *testing.T) {
	assert.True(t, testPolicy().Monotonic())
	assert.True(t, SamplingPolicy{}.Monotonic())

	bad := SamplingPolicy{Thresholds: []SampleThreshold{
		{MinBytes: 10 * gb, Rate: 0.5},
		{MinBytes: 5 * gb, Rate: 0.1},
	}}
	assert.False(t, bad.Monotonic())

	unsorted := SamplingPolicy{Thresholds: []SampleThreshold{
		{MinBytes: 1 * gb, Rate: 0.1},
		{MinBytes: 5 * gb, Rate: 0.2},
	}}
	assert.False(t, unsorted.Monotonic())
}
