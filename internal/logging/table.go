// Package logging provides aligned, multi-column table rendering for the
// negotiation summary cmd/audioconvertctl prints.
package logging

import (
	"fmt"
	"math"
	"strings"
)

// MetricRow is a single row in a comparison table. Values are pre-formatted
// strings to allow mixed formatting (decimals, scientific notation, units).
type MetricRow struct {
	Label          string   // Row label, e.g. "Sample Rate"
	Values         []string // One value per column (e.g. Input, Output)
	Unit           string   // Unit suffix, e.g. "Hz", "" for unitless
	Interpretation string   // Optional trailing note, only shown if non-empty
}

// MetricTable formats aligned columns for a row/column comparison, e.g. the
// negotiated Input/Output format a run settled on.
type MetricTable struct {
	Headers []string
	Rows    []MetricRow
}

// NewMetricTable creates a table with the given column headers.
func NewMetricTable(headers ...string) *MetricTable {
	return &MetricTable{Headers: headers}
}

// AddRow appends a row of pre-formatted values.
func (t *MetricTable) AddRow(label string, values []string, unit string, interpretation string) {
	t.Rows = append(t.Rows, MetricRow{
		Label:          label,
		Values:         values,
		Unit:           unit,
		Interpretation: interpretation,
	})
}

// String renders the table with aligned columns: labels left-aligned,
// values right-aligned, units and an optional interpretation column
// trailing.
func (t *MetricTable) String() string {
	if len(t.Rows) == 0 {
		return ""
	}

	hasInterpretation := false
	for _, row := range t.Rows {
		if row.Interpretation != "" {
			hasInterpretation = true
			break
		}
	}

	labelWidth := 0
	for _, row := range t.Rows {
		if len(row.Label) > labelWidth {
			labelWidth = len(row.Label)
		}
	}

	valueWidths := make([]int, len(t.Headers))
	for i, header := range t.Headers {
		valueWidths[i] = len(header)
	}
	for _, row := range t.Rows {
		for i, val := range row.Values {
			if i < len(valueWidths) && len(val) > valueWidths[i] {
				valueWidths[i] = len(val)
			}
		}
	}

	unitWidth := 0
	for _, row := range t.Rows {
		if len(row.Unit) > unitWidth {
			unitWidth = len(row.Unit)
		}
	}

	var sb strings.Builder

	sb.WriteString(strings.Repeat(" ", labelWidth+2))
	for i, header := range t.Headers {
		sb.WriteString(fmt.Sprintf("%*s  ", valueWidths[i], header))
	}
	if unitWidth > 0 {
		sb.WriteString(strings.Repeat(" ", unitWidth+1))
	}
	if hasInterpretation {
		sb.WriteString("Interpretation")
	}
	sb.WriteString("\n")

	for _, row := range t.Rows {
		sb.WriteString(fmt.Sprintf("%-*s  ", labelWidth, row.Label))

		for i := 0; i < len(t.Headers); i++ {
			val := MissingValue
			if i < len(row.Values) && row.Values[i] != "" {
				val = row.Values[i]
			}
			sb.WriteString(fmt.Sprintf("%*s  ", valueWidths[i], val))
		}

		if unitWidth > 0 {
			sb.WriteString(fmt.Sprintf("%-*s ", unitWidth, row.Unit))
		}

		if hasInterpretation {
			sb.WriteString(row.Interpretation)
		}

		sb.WriteString("\n")
	}

	return sb.String()
}

// MissingValue is the placeholder for an absent value in a row.
const MissingValue = "-"

// formatMetric formats a numeric value with appropriate precision, falling
// back to scientific notation for very small non-zero values and to
// MissingValue for NaN/Inf.
func formatMetric(value float64, decimals int) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return MissingValue
	}
	if value != 0 && math.Abs(value) < 0.0001 {
		return fmt.Sprintf("%.2e", value)
	}
	layout := fmt.Sprintf("%%.%df", decimals)
	return fmt.Sprintf(layout, value)
}

// FormatMetric is the exported form of formatMetric, for callers outside
// this package building MetricRow values.
func FormatMetric(value float64, decimals int) string {
	return formatMetric(value, decimals)
}

// formatMetricSigned formats a value with an explicit sign, for deltas like
// a resampler's reported rate-match offset.
func formatMetricSigned(value float64, decimals int) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return MissingValue
	}
	layout := fmt.Sprintf("%%+.%df", decimals)
	return fmt.Sprintf(layout, value)
}

// FormatMetricSigned is the exported form of formatMetricSigned.
func FormatMetricSigned(value float64, decimals int) string {
	return formatMetricSigned(value, decimals)
}

// formatMetricWithUnit combines a formatted value and its unit.
func formatMetricWithUnit(value float64, decimals int, unit string) string {
	formatted := formatMetric(value, decimals)
	if formatted == MissingValue || unit == "" {
		return formatted
	}
	return formatted + " " + unit
}

// FormatMetricWithUnit is the exported form of formatMetricWithUnit.
func FormatMetricWithUnit(value float64, decimals int, unit string) string {
	return formatMetricWithUnit(value, decimals, unit)
}
