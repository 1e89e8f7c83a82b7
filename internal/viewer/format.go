package viewer

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const notAvailable = "N/A"

var printer = message.NewPrinter(language.BritishEnglish)

// FormatValue renders a feature property for the info panel. Score,
// potential and feasibility fields get three decimals, distance fields a
// " km" suffix, other numbers thousands grouping.
func FormatValue(name string, v interface{}) string {
	if v == nil {
		return notAvailable
	}

	f, ok := toFloat(v)
	if !ok {
		if s, isString := v.(string); isString {
			if s == "" {
				return notAvailable
			}
			return s
		}
		return fmt.Sprint(v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return notAvailable
	}

	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "score"),
		strings.Contains(lower, "potential"),
		strings.Contains(lower, "feasibility"):
		return strconv.FormatFloat(f, 'f', 3, 64)
	case strings.Contains(lower, "distance"):
		return grouped(f) + " km"
	default:
		return grouped(f)
	}
}

func grouped(f float64) string {
	return printer.Sprint(number.Decimal(f, number.MaxFractionDigits(3)))
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// Label turns a property name into a display label: "ev_share" → "Ev share".
func Label(name string) string {
	s := strings.TrimSpace(strings.ReplaceAll(name, "_", " "))
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

// InfoRow is one formatted property.
type InfoRow struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// InfoPanel is the click popup for the first hit feature.
type InfoPanel struct {
	Title string    `json:"title"`
	Layer string    `json:"layer"`
	Rows  []InfoRow `json:"rows"`
}

// InfoRows lists the key properties first, in the given order and only if
// present, followed by every other property sorted by name.
func InfoRows(props map[string]interface{}, keys []string) []InfoRow {
	rows := make([]InfoRow, 0, len(props))
	seen := make(map[string]struct{}, len(keys))

	for _, k := range keys {
		v, ok := props[k]
		if !ok {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		rows = append(rows, InfoRow{Name: k, Label: Label(k), Value: FormatValue(k, v)})
	}

	rest := make([]string, 0, len(props))
	for k := range props {
		if _, ok := seen[k]; !ok {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		rows = append(rows, InfoRow{Name: k, Label: Label(k), Value: FormatValue(k, props[k])})
	}
	return rows
}
