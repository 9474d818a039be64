package model

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Format is a serialization target for a workbook.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
	FormatPDF  Format = "pdf"
)

// ExportMode selects which sheet set the engine builds.
type ExportMode string

const (
	// ModeDefault builds Performance, Absentees and Analytics Summary.
	ModeDefault ExportMode = "default"
	// ModeAdvanced builds the custom-column sheets.
	ModeAdvanced ExportMode = "advanced"
)

// ExportConfiguration is the user's intent for one export.
type ExportConfiguration struct {
	Columns  ColumnSelection `json:"columns" yaml:"columns"`
	Filters  FilterSet       `json:"filters" yaml:"filters"`
	Settings Settings        `json:"settings" yaml:"settings"`
}

// DefaultExportConfiguration returns the configuration used when the caller
// supplies none. Decoding a partial document on top of it keeps the
// defaults for missing keys.
func DefaultExportConfiguration() ExportConfiguration {
	return ExportConfiguration{
		Settings: Settings{
			Format:           FormatXLSX,
			IncludeSummary:   true,
			ColorCode:        true,
			IncludeTimestamp: true,
		},
	}
}

// ColumnToggle is one entry of a column selection.
type ColumnToggle struct {
	Key     string
	Include bool
}

// ColumnSelection is an ordered mapping of column key to include flag.
// Order matters: custom sheet headers follow it.
type ColumnSelection []ColumnToggle

// Selected returns the keys whose include flag is set, in order, without duplicates.
func (c ColumnSelection) Selected() []string {
	seen := make(map[string]bool, len(c))
	var keys []string
	for _, t := range c {
		if !t.Include || seen[t.Key] {
			continue
		}
		seen[t.Key] = true
		keys = append(keys, t.Key)
	}
	return keys
}

// UnmarshalJSON decodes either an object of key to bool, preserving key
// order, or an array of keys that are all included.
func (c *ColumnSelection) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = nil
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		var keys []string
		if err := json.Unmarshal(data, &keys); err != nil {
			return fmt.Errorf("columns: %w", err)
		}
		out := make(ColumnSelection, 0, len(keys))
		for _, k := range keys {
			out = append(out, ColumnToggle{Key: k, Include: true})
		}
		*c = out
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("columns: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("columns: expected object or array")
	}
	var out ColumnSelection
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("columns: %w", err)
		}
		key, _ := tok.(string)
		var include bool
		if err := dec.Decode(&include); err != nil {
			return fmt.Errorf("columns: key %q: %w", key, err)
		}
		out = append(out, ColumnToggle{Key: key, Include: include})
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("columns: %w", err)
	}
	*c = out
	return nil
}

// MarshalJSON encodes the selection as an object in selection order.
func (c ColumnSelection) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, t := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(t.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		if t.Include {
			buf.WriteString(":true")
		} else {
			buf.WriteString(":false")
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalYAML decodes a mapping (order preserved) or a sequence of keys.
func (c *ColumnSelection) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		out := make(ColumnSelection, 0, len(value.Content))
		for _, n := range value.Content {
			out = append(out, ColumnToggle{Key: n.Value, Include: true})
		}
		*c = out
		return nil
	case yaml.MappingNode:
		out := make(ColumnSelection, 0, len(value.Content)/2)
		for i := 0; i+1 < len(value.Content); i += 2 {
			var include bool
			if err := value.Content[i+1].Decode(&include); err != nil {
				return fmt.Errorf("columns: key %q: %w", value.Content[i].Value, err)
			}
			out = append(out, ColumnToggle{Key: value.Content[i].Value, Include: include})
		}
		*c = out
		return nil
	default:
		return fmt.Errorf("columns: line %d: expected mapping or sequence", value.Line)
	}
}

// FilterSet holds the named selection predicates. Each is toggled
// independently; enabled predicates are combined with AND.
type FilterSet struct {
	PresentStudents     bool     `json:"presentStudents" yaml:"presentStudents"`
	AbsentStudents      bool     `json:"absentStudents" yaml:"absentStudents"`
	ByDepartment        bool     `json:"byDepartment" yaml:"byDepartment"`
	Departments         []string `json:"departments,omitempty" yaml:"departments,omitempty" validate:"omitempty,dive,required"`
	ByBatch             bool     `json:"byBatch" yaml:"byBatch"`
	Batches             []string `json:"batches,omitempty" yaml:"batches,omitempty" validate:"omitempty,dive,required"`
	ByPerformanceRange  bool     `json:"byPerformanceRange" yaml:"byPerformanceRange"`
	PerformanceRanges   []string `json:"performanceRanges,omitempty" yaml:"performanceRanges,omitempty"`
	FirstAttemptOnly    bool     `json:"firstAttemptOnly" yaml:"firstAttemptOnly"`
	LateSubmissionsOnly bool     `json:"lateSubmissionsOnly" yaml:"lateSubmissionsOnly"`
	ExcludeDisqualified bool     `json:"excludeDisqualified" yaml:"excludeDisqualified"`
	GradedOnly          bool     `json:"gradedOnly" yaml:"gradedOnly"`
	IncludeAbsentees    bool     `json:"includeAbsentees" yaml:"includeAbsentees"`
}

// Settings controls output shape and presentation.
type Settings struct {
	Format           Format `json:"format" yaml:"format" validate:"omitempty,oneof=xlsx csv pdf"`
	CustomFilename   string `json:"customFilename,omitempty" yaml:"customFilename,omitempty" validate:"omitempty,max=120"`
	IncludeCharts    bool   `json:"includeCharts" yaml:"includeCharts"`
	IncludeSummary   bool   `json:"includeSummary" yaml:"includeSummary"`
	ColorCode        bool   `json:"colorCode" yaml:"colorCode"`
	IncludeTimestamp bool   `json:"includeTimestamp" yaml:"includeTimestamp"`
}
