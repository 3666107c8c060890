package eval

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Report is the persisted record of one evaluation run.
type Report struct {
	RunID   string
	Name    string
	Dataset string
	Created time.Time
	Samples int
	Names   []string
	Metrics map[string]float64
	Sweep   []SweepResult
}

// NewReport wraps a run's results with a fresh run id. sweep may be nil.
func NewReport(name, dataset string, res *Result, sweep []SweepResult) *Report {
	r := &Report{
		RunID:   uuid.NewString(),
		Name:    name,
		Dataset: dataset,
		Created: time.Now().UTC().Truncate(time.Second),
		Sweep:   sweep,
	}
	if res != nil {
		r.Samples = res.Samples
		r.Names = slices.Clone(res.Names)
		r.Metrics = res.Metrics
	}
	return r
}

// Struct converts r to a protobuf Struct.
func (r *Report) Struct() (*structpb.Struct, error) {
	metrics := make([]any, 0, len(r.Names))
	for _, name := range r.Names {
		metrics = append(metrics, map[string]any{
			"name":  name,
			"value": r.Metrics[name],
		})
	}

	sweep := make([]any, 0, len(r.Sweep))
	for _, s := range r.Sweep {
		sweep = append(sweep, map[string]any{
			"threshold": s.Threshold,
			"precision": s.Precision,
			"recall":    s.Recall,
			"f1":        s.F1,
		})
	}

	return structpb.NewStruct(map[string]any{
		"run_id":  r.RunID,
		"name":    r.Name,
		"dataset": r.Dataset,
		"created": r.Created.Format(time.RFC3339),
		"samples": r.Samples,
		"metrics": metrics,
		"sweep":   sweep,
	})
}

func reportFromStruct(s *structpb.Struct) (*Report, error) {
	f := s.GetFields()
	r := &Report{
		RunID:   f["run_id"].GetStringValue(),
		Name:    f["name"].GetStringValue(),
		Dataset: f["dataset"].GetStringValue(),
		Samples: int(f["samples"].GetNumberValue()),
		Metrics: make(map[string]float64),
	}
	if r.RunID == "" {
		return nil, fmt.Errorf("report has no run_id")
	}

	if created := f["created"].GetStringValue(); created != "" {
		t, err := time.Parse(time.RFC3339, created)
		if err != nil {
			return nil, fmt.Errorf("report created: %w", err)
		}
		r.Created = t
	}

	for _, v := range f["metrics"].GetListValue().GetValues() {
		m := v.GetStructValue().GetFields()
		name := m["name"].GetStringValue()
		r.Names = append(r.Names, name)
		r.Metrics[name] = m["value"].GetNumberValue()
	}
	for _, v := range f["sweep"].GetListValue().GetValues() {
		m := v.GetStructValue().GetFields()
		r.Sweep = append(r.Sweep, SweepResult{
			Threshold: m["threshold"].GetNumberValue(),
			Precision: m["precision"].GetNumberValue(),
			Recall:    m["recall"].GetNumberValue(),
			F1:        m["f1"].GetNumberValue(),
		})
	}
	return r, nil
}

// isBinary reports whether path selects the binary wire format.
func isBinary(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pb")
}

// WriteReport writes r to path: binary protobuf for .pb, JSON otherwise.
func WriteReport(path string, r *Report) error {
	s, err := r.Struct()
	if err != nil {
		return fmt.Errorf("building report: %w", err)
	}

	var data []byte
	if isBinary(path) {
		data, err = proto.Marshal(s)
	} else {
		data, err = protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(s)
	}
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// ReadReport loads a report written by WriteReport.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}

	var s structpb.Struct
	if isBinary(path) {
		err = proto.Unmarshal(data, &s)
	} else {
		err = protojson.Unmarshal(data, &s)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding report %s: %w", path, err)
	}
	return reportFromStruct(&s)
}
