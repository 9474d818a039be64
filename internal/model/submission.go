package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// SubmissionStatus is the lifecycle status of a student's attempt.
type SubmissionStatus string

const (
	StatusNotAttempted SubmissionStatus = "not_attempted"
	StatusInProgress   SubmissionStatus = "in_progress"
	StatusSubmitted    SubmissionStatus = "submitted"
	StatusGraded       SubmissionStatus = "graded"
)

// Completed reports whether the status counts as present.
func (s SubmissionStatus) Completed() bool {
	return s == StatusSubmitted || s == StatusGraded
}

// SubmissionRecord is one student's attempt at one assessment, as supplied
// by the fetch layer. Optional fields are pointers so that "missing" and
// "zero" stay distinguishable.
type SubmissionRecord struct {
	StudentID       string           `json:"student_id"`
	StudentIDNumber *string          `json:"student_id_number,omitempty"`
	StudentName     *string          `json:"student_name,omitempty"`
	Email           *string          `json:"email,omitempty"`
	DepartmentName  *string          `json:"department_name,omitempty"`
	BatchName       *string          `json:"batch_name,omitempty"`
	CollegeName     *string          `json:"college_name,omitempty"`
	AdmissionType   *string          `json:"admission_type,omitempty"`
	Status          SubmissionStatus `json:"status"`
	Score           *float64         `json:"score,omitempty"`
	PercentageScore *float64         `json:"percentage_score,omitempty"`
	AttemptNumber   *int             `json:"attempt_number,omitempty"`
	IsLate          bool             `json:"is_late"`
	IsDisqualified  bool             `json:"is_disqualified"`
	StartedAt       *time.Time       `json:"started_at,omitempty"`
	SubmittedAt     *time.Time       `json:"submitted_at,omitempty"`
	GradedAt        *time.Time       `json:"graded_at,omitempty"`
	TimeTaken       *float64         `json:"time_taken,omitempty"` // minutes
}

// Present reports whether the student reached a completed status.
func (r SubmissionRecord) Present() bool {
	return r.Status.Completed()
}

// Attempt returns the attempt number, treating a missing value as the first attempt.
func (r SubmissionRecord) Attempt() int {
	if r.AttemptNumber == nil {
		return 1
	}
	return *r.AttemptNumber
}

// QuestionType is a question-type token such as "multiple_choice".
type QuestionType string

// QuestionTypeInfo is one entry of an assessment's question-type composition.
type QuestionTypeInfo struct {
	Type  QuestionType `json:"type"`
	Marks *float64     `json:"marks,omitempty"`
}

// UnmarshalJSON accepts either a bare type token or a {type, marks} object.
func (q *QuestionTypeInfo) UnmarshalJSON(data []byte) error {
	var token string
	if err := json.Unmarshal(data, &token); err == nil {
		*q = QuestionTypeInfo{Type: QuestionType(token)}
		return nil
	}
	type plain QuestionTypeInfo
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("question type: %w", err)
	}
	*q = QuestionTypeInfo(p)
	return nil
}

// Question is the subset of a question object the export needs.
type Question struct {
	ID           string       `json:"id,omitempty"`
	QuestionType QuestionType `json:"question_type"`
	Marks        *float64     `json:"marks,omitempty"`
}

// AssessmentMetadata describes the assessment being exported.
type AssessmentMetadata struct {
	ID            string             `json:"id"`
	Title         string             `json:"title"`
	CollegeName   string             `json:"college_name"`
	CreatedAt     time.Time          `json:"created_at"`
	QuestionTypes []QuestionTypeInfo `json:"question_types,omitempty"`
	Questions     []Question         `json:"questions,omitempty"`
}

// Dataset is the on-disk interchange shape: one assessment and its submissions.
type Dataset struct {
	Assessment  AssessmentMetadata `json:"assessment"`
	Submissions []SubmissionRecord `json:"submissions"`
}
