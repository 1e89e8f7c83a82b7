package viewer

import (
	"testing"

	"github.com/ev-tile-publisher/internal/catalog"
	"github.com/ev-tile-publisher/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var priorityScale = domain.ColorScale{
	ID:       "priority",
	Kind:     domain.ScaleCategorical,
	Property: "priority_class",
	Categories: []domain.Category{
		{Value: "High", Label: "High priority", Color: "#d7191c"},
		{Value: "Medium", Color: "#fdae61"},
		{Value: "Low", Label: "Low priority", Color: "#abd9e9"},
	},
	Fallback: "#bdbdbd",
}

func TestBuildLegend_Continuous(t *testing.T) {
	scale := domain.ColorScale{
		ID:       "feasibility",
		Kind:     domain.ScaleContinuous,
		Property: "range_feasibility_score",
		Stops: []domain.ColorStop{
			{Value: 0, Color: "#d73027"},
			{Value: 0.5, Color: "#fee08b"},
			{Value: 1, Color: "#1a9850"},
		},
		Labels: &domain.ScaleLabels{Min: "Infeasible", Mid: "Marginal", Max: "Feasible"},
	}

	l := BuildLegend("range_feasibility", "Trip range feasibility", scale, nil)

	assert.Equal(t, domain.ScaleContinuous, l.Kind)
	assert.Equal(t, []string{"Infeasible", "Marginal", "Feasible"}, l.Labels)
	assert.Equal(t, "linear-gradient(to right, #d73027, #fee08b, #1a9850)", l.Gradient)
	assert.Empty(t, l.Rows)

	scale.Labels = nil
	l = BuildLegend("range_feasibility", "Trip range feasibility", scale, nil)
	assert.Equal(t, []string{"0.000", "0.500", "1.000"}, l.Labels)
}

func TestBuildLegend_Categorical(t *testing.T) {
	t.Run("one row per category", func(t *testing.T) {
		l := BuildLegend("priority_zones", "Priority", priorityScale, nil)
		require.Len(t, l.Rows, 3)
		assert.Equal(t, LegendRow{Color: "#d7191c", Label: "High priority"}, l.Rows[0])
		assert.Equal(t, LegendRow{Color: "#fdae61", Label: "Medium"}, l.Rows[1])
		assert.Empty(t, l.Labels)
	})

	t.Run("mapped observations add nothing", func(t *testing.T) {
		observed := map[string]struct{}{"High": {}, "Low": {}}
		l := BuildLegend("priority_zones", "Priority", priorityScale, observed)
		assert.Len(t, l.Rows, 3)
	})

	t.Run("unmapped observation adds one fallback row", func(t *testing.T) {
		observed := map[string]struct{}{"High": {}, "Unknown": {}, "n/a": {}}
		l := BuildLegend("priority_zones", "Priority", priorityScale, observed)
		require.Len(t, l.Rows, 4)
		assert.Equal(t, LegendRow{Color: "#bdbdbd", Label: "Other"}, l.Rows[3])
	})
}

func TestBuildLegends(t *testing.T) {
	c, err := catalog.Default()
	require.NoError(t, err)

	legends, err := BuildLegends(c, "adoption_propensity", []string{"chargers", "car_availability"}, nil)
	require.NoError(t, err)
	require.Len(t, legends, 3)

	assert.Equal(t, "adoption_propensity", legends[0].ID)
	assert.Equal(t, "EV adoption propensity", legends[0].Title)
	assert.Len(t, legends[0].Labels, 3)

	// catalog order, not request order
	assert.Equal(t, "car_availability", legends[1].ID)
	assert.Equal(t, "chargers", legends[2].ID)
	assert.Equal(t, []LegendRow{{Color: "#00a86b", Label: "Public chargers"}}, legends[2].Rows)

	_, err = BuildLegends(c, "nope", nil, nil)
	assert.Error(t, err)
	_, err = BuildLegends(c, "adoption_propensity", []string{"nope"}, nil)
	assert.Error(t, err)
}
