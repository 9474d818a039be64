package store

import (
	"fmt"

	"github.com/pavelanni/gradesheet/internal/model"
	"github.com/pavelanni/gradesheet/internal/report"
)

// LoadDataset returns an assessment together with its submissions.
func (s *Store) LoadDataset(assessmentID string) (model.Dataset, error) {
	a, err := s.GetAssessment(assessmentID)
	if err != nil {
		return model.Dataset{}, err
	}
	subs, err := s.ListSubmissions(assessmentID)
	if err != nil {
		return model.Dataset{}, fmt.Errorf("list submissions for %q: %w", assessmentID, err)
	}
	return model.Dataset{Assessment: a, Submissions: subs}, nil
}

// LoadExportInput builds the engine input for a stored assessment.
func (s *Store) LoadExportInput(assessmentID string, cfg model.ExportConfiguration) (report.Input, error) {
	ds, err := s.LoadDataset(assessmentID)
	if err != nil {
		return report.Input{}, err
	}
	return report.Input{Assessment: ds.Assessment, Submissions: ds.Submissions, Config: cfg}, nil
}
