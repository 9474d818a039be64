package report

import (
	"time"

	"github.com/pavelanni/gradesheet/internal/model"
)

func ptr[T any](v T) *T { return &v }

var fixedNow = time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// student builds a record with identity fields filled in.
func student(id, name, dept, batch string, status model.SubmissionStatus) model.SubmissionRecord {
	return model.SubmissionRecord{
		StudentID:       id,
		StudentIDNumber: ptr("R-" + id),
		StudentName:     ptr(name),
		Email:           ptr(id + "@example.edu"),
		DepartmentName:  ptr(dept),
		BatchName:       ptr(batch),
		Status:          status,
	}
}

// graded builds a graded record where score and percentage are equal.
func graded(id, name string, pct float64) model.SubmissionRecord {
	r := student(id, name, "CSE", "2024", model.StatusGraded)
	r.Score = ptr(pct)
	r.PercentageScore = ptr(pct)
	return r
}

func testAssessment(types ...model.QuestionType) model.AssessmentMetadata {
	a := model.AssessmentMetadata{
		ID:          "a1",
		Title:       "Midterm Exam",
		CollegeName: "Riverside College",
		CreatedAt:   time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC),
	}
	for _, t := range types {
		a.QuestionTypes = append(a.QuestionTypes, model.QuestionTypeInfo{Type: t})
	}
	return a
}
