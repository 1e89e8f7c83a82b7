package viewer

import (
	"sort"
	"strings"

	"github.com/ev-tile-publisher/internal/domain"
)

// fallbackLabel names the row for values outside a categorical scale.
const fallbackLabel = "Other"

type LegendRow struct {
	Color string `json:"color"`
	Label string `json:"label"`
}

// Legend is one legend block. Continuous scales fill Gradient and exactly
// three Labels; categorical scales fill Rows.
type Legend struct {
	ID       string           `json:"id"`
	Title    string           `json:"title"`
	Kind     domain.ScaleKind `json:"kind"`
	Gradient string           `json:"gradient,omitempty"`
	Labels   []string         `json:"labels,omitempty"`
	Rows     []LegendRow      `json:"rows,omitempty"`
}

// BuildLegend renders a scale. observed holds property values seen in
// rendered data; the fallback row appears only when one of them is not
// covered by the categories.
func BuildLegend(id, title string, scale domain.ColorScale, observed map[string]struct{}) Legend {
	l := Legend{ID: id, Title: title, Kind: scale.Kind}

	if scale.Kind == domain.ScaleCategorical {
		for _, c := range scale.Categories {
			label := c.Label
			if label == "" {
				label = c.Value
			}
			l.Rows = append(l.Rows, LegendRow{Color: c.Color, Label: label})
		}
		for v := range observed {
			if _, mapped := scale.CategoryColor(v); !mapped {
				l.Rows = append(l.Rows, LegendRow{Color: scale.Fallback, Label: fallbackLabel})
				break
			}
		}
		return l
	}

	colors := make([]string, 0, len(scale.Stops))
	for _, s := range scale.Stops {
		colors = append(colors, s.Color)
	}
	l.Gradient = "linear-gradient(to right, " + strings.Join(colors, ", ") + ")"

	if scale.Labels != nil {
		l.Labels = []string{scale.Labels.Min, scale.Labels.Mid, scale.Labels.Max}
	} else {
		lo, hi := scale.Stops[0].Value, scale.Stops[len(scale.Stops)-1].Value
		l.Labels = []string{
			FormatValue(scale.Property, lo),
			FormatValue(scale.Property, (lo+hi)/2),
			FormatValue(scale.Property, hi),
		}
	}
	return l
}

// OverlaySwatch is the legend of an overlay drawn in a single colour.
func OverlaySwatch(overlay domain.Overlay) Legend {
	return Legend{
		ID:    overlay.ID,
		Title: overlay.Title,
		Kind:  domain.ScaleCategorical,
		Rows:  []LegendRow{{Color: overlay.Color, Label: overlay.Title}},
	}
}

// BuildLegends renders the stage legend followed by one legend per enabled
// overlay, in catalog order.
func BuildLegends(
	catalog *domain.Catalog,
	stageID string,
	overlays []string,
	observed map[string]map[string]struct{},
) ([]Legend, error) {
	stage, ok := catalog.Stage(stageID)
	if !ok {
		return nil, errStage(stageID)
	}
	scale, _ := catalog.Scale(stage.Scale)

	title := stage.LegendTitle
	if title == "" {
		title = stage.Title
	}
	legends := []Legend{BuildLegend(stage.ID, title, scale, observed[scale.ID])}

	enabled := make(map[string]struct{}, len(overlays))
	for _, id := range overlays {
		if _, ok := catalog.Overlay(id); !ok {
			return nil, errOverlay(id)
		}
		enabled[id] = struct{}{}
	}

	for _, o := range catalog.Overlays {
		if _, on := enabled[o.ID]; !on {
			continue
		}
		if o.Scale == "" {
			legends = append(legends, OverlaySwatch(o))
			continue
		}
		s, _ := catalog.Scale(o.Scale)
		legends = append(legends, BuildLegend(o.ID, o.Title, s, observed[s.ID]))
	}
	return legends, nil
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k, on := range m {
		if on {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
