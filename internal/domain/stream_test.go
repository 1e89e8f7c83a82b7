package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestConversionRequestEvent_IsOverlay(t *testing.T) {
	tests := []struct {
		name     string
		event    ConversionRequestEvent
		expected bool
	}{
		{
			name:     "region stage request",
			event:    ConversionRequestEvent{RequestID: uuid.New(), Region: "spt", Stage: "range_feasibility"},
			expected: false,
		},
		{
			name:     "overlay request",
			event:    ConversionRequestEvent{RequestID: uuid.New(), Overlay: "ev_distribution"},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.event.IsOverlay())
		})
	}
}

func TestRunReport_Add(t *testing.T) {
	var r RunReport
	r.Add(ConversionResult{Key: "a", Status: StatusConverted})
	r.Add(ConversionResult{Key: "b", Status: StatusSkipped})
	r.Add(ConversionResult{Key: "c", Status: StatusFailed, Error: "boom"})
	r.Add(ConversionResult{Key: "d", Status: StatusConverted})

	assert.Equal(t, 2, r.Converted)
	assert.Equal(t, 1, r.Skipped)
	assert.Equal(t, 1, r.Failed)
	assert.Equal(t, 4, r.Total())
	assert.Len(t, r.Results, 4)
}
