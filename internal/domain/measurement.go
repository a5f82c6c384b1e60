package domain

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Default layer and scenario codes used when a display name is unknown.
const (
	DefaultLayerCode    = "pr_a20mm"
	DefaultScenarioCode = "ssp126"
)

// layerCodes maps user-facing layer names to the codes used in CSV file names
// and in the name column of each row.
var layerCodes = map[string]string{
	"Maximum temperature": "tasmax_mean",
	"Minimum temperature": "tasmin_mean",
	"Average temperature": "tas_mean",
	"Total rainfall":      "pr_sum",
	"Days above 20 mm":    "pr_a20mm",
	"Dry spells":          "pr_cdd5",
	"Dry Spells":          "pr_cdd5",
}

var scenarioCodes = map[string]string{
	"Low":  "ssp126",
	"High": "ssp585",
}

// LayerCode returns the dataset code for a display name.
func LayerCode(layer string) string {
	if code, ok := layerCodes[layer]; ok {
		return code
	}
	return DefaultLayerCode
}

// ScenarioCode returns the SSP code for a scenario display name.
func ScenarioCode(scenario string) string {
	if code, ok := scenarioCodes[scenario]; ok {
		return code
	}
	return DefaultScenarioCode
}

// CSVFileName returns the object-store file holding a layer's time series,
// e.g. "tasmax_mean_ssp585_90-10.csv".
func CSVFileName(layer, scenario string) string {
	return fmt.Sprintf("%s_%s_90-10.csv", LayerCode(layer), ScenarioCode(scenario))
}

// Measurement is one parsed row of a time-series CSV. RunMin and RunMax are
// nil when the file carries no percentile columns.
type Measurement struct {
	Name     string
	Year     string
	Scenario string
	Mean     float64
	RunMin   *float64
	RunMax   *float64
}

// Column names of the time-series files.
const (
	colName     = "name"
	colYear     = "year"
	colMean     = "delta_value_mean"
	colScenario = "sceno"
	colRunMin   = "delta_value_run_min"
	colRunMax   = "delta_value_run_max"
)

// ParseMeasurements reads a header row followed by data rows and keeps the
// rows whose name equals code. An empty code keeps every row. The lower and
// upper band come from the first header containing "10" and "90"
// respectively, falling back to explicit run_min/run_max columns.
func ParseMeasurements(r io.Reader, code string) ([]Measurement, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	cols := make(map[string]int, len(header))
	minCol, maxCol := -1, -1
	for i, h := range header {
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
		if minCol < 0 && strings.Contains(h, "10") {
			minCol = i
		}
		if maxCol < 0 && strings.Contains(h, "90") {
			maxCol = i
		}
	}
	if minCol < 0 {
		minCol = indexOr(cols, colRunMin)
	}
	if maxCol < 0 {
		maxCol = indexOr(cols, colRunMax)
	}

	var rows []Measurement
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		if isBlank(record) {
			continue
		}

		m := Measurement{
			Name:     cell(record, indexOr(cols, colName)),
			Year:     cell(record, indexOr(cols, colYear)),
			Scenario: cell(record, indexOr(cols, colScenario)),
		}
		if code != "" && m.Name != code {
			continue
		}
		if v, ok := CoerceValue(cell(record, indexOr(cols, colMean))); ok {
			m.Mean = v
		}
		m.RunMin = optionalNumber(cell(record, minCol))
		m.RunMax = optionalNumber(cell(record, maxCol))
		rows = append(rows, m)
	}
	return rows, nil
}

func indexOr(cols map[string]int, name string) int {
	if i, ok := cols[name]; ok {
		return i
	}
	return -1
}

func cell(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func optionalNumber(s string) *float64 {
	v, ok := CoerceValue(s)
	if !ok {
		return nil
	}
	return &v
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// ChartMeta labels a series for rendering.
type ChartMeta struct {
	Code       string `json:"code"`
	Label      string `json:"label"`
	Unit       string `json:"unit"`
	YAxisTitle string `json:"yAxisTitle"`
}

var chartMeta = map[string]ChartMeta{
	"tasmax_mean": {Label: "Maximum Temperature", Unit: "°C", YAxisTitle: "Change in max. temp. (°C)"},
	"tasmin_mean": {Label: "Minimum Temperature", Unit: "°C", YAxisTitle: "Change in min. temp. (°C)"},
	"tas_mean":    {Label: "Average Temperature", Unit: "°C", YAxisTitle: "Change in av. temp. (°C)"},
	"pr_sum":      {Label: "Total Rainfall", Unit: "mm", YAxisTitle: "Change in total rainfall (mm)"},
	"pr_a20mm":    {Label: "Days above 20mm", Unit: "days", YAxisTitle: "Change in days >20mm (days/year)"},
	"pr_cdd5":     {Label: "Dry Spell Duration", Unit: "days", YAxisTitle: "Change in dry spells (spells/year)"},
}

// ChartMetaFor returns the chart labels for a dataset code.
func ChartMetaFor(code string) ChartMeta {
	if m, ok := chartMeta[code]; ok {
		m.Code = code
		return m
	}
	return ChartMeta{Code: code, Label: "Climate Value", YAxisTitle: "Change in Climate Value"}
}

// SeriesPoint is one year of a chart series with its uncertainty band.
type SeriesPoint struct {
	Year string  `json:"year"`
	Mean float64 `json:"mean"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// Series is a chart-ready time series.
type Series struct {
	Meta     ChartMeta     `json:"meta"`
	Scenario string        `json:"scenario"`
	Points   []SeriesPoint `json:"points"`
}

// seriesBandFallback is the half-width of the band drawn when a row has no
// percentile values.
const seriesBandFallback = 0.5

// PrepareSeries sorts rows by year and fills in missing bands around the
// mean. Metadata comes from the first row.
func PrepareSeries(rows []Measurement) Series {
	s := Series{Points: make([]SeriesPoint, 0, len(rows))}
	if len(rows) == 0 {
		s.Meta = ChartMetaFor("")
		return s
	}

	sorted := make([]Measurement, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return yearNumber(sorted[i].Year) < yearNumber(sorted[j].Year)
	})

	s.Meta = ChartMetaFor(sorted[0].Name)
	s.Scenario = sorted[0].Scenario
	for _, m := range sorted {
		p := SeriesPoint{
			Year: m.Year,
			Mean: m.Mean,
			Min:  m.Mean - seriesBandFallback,
			Max:  m.Mean + seriesBandFallback,
		}
		if m.RunMin != nil {
			p.Min = *m.RunMin
		}
		if m.RunMax != nil {
			p.Max = *m.RunMax
		}
		s.Points = append(s.Points, p)
	}
	return s
}

// yearNumber parses the leading integer of a year cell; unparsable years
// sort first.
func yearNumber(year string) int {
	end := 0
	for end < len(year) && year[end] >= '0' && year[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(year[:end])
	if err != nil {
		return 0
	}
	return n
}
