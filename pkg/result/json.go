package result

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Report is the JSON document written by the run command.
type Report struct {
	Outcomes []Outcome `json:"outcomes"`
	Failed   int       `json:"failed"`
}

// NewReport builds a report from the table.
func NewReport(t *Table) Report {
	return Report{Outcomes: t.Outcomes(), Failed: t.Failed()}
}

// WriteJSON encodes the report, indented.
func (r Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// SaveReport writes the report to path.
func SaveReport(path string, r Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.WriteJSON(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// ReadReport decodes a report written by WriteJSON.
func ReadReport(r io.Reader) (Report, error) {
	var rep Report
	if err := json.NewDecoder(r).Decode(&rep); err != nil {
		return Report{}, fmt.Errorf("decoding report: %w", err)
	}
	return rep, nil
}
