package store

import (
	"database/sql"
	"time"

	"github.com/pavelanni/gradesheet/internal/model"
)

const submissionColumns = `student_id, student_id_number, student_name, email, department_name, batch_name,
	college_name, admission_type, status, score, percentage_score, attempt_number, is_late, is_disqualified,
	started_at, submitted_at, graded_at, time_taken`

func insertSubmission(tx *sql.Tx, assessmentID string, r model.SubmissionRecord) error {
	_, err := tx.Exec(
		`INSERT INTO submissions (assessment_id, `+submissionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		assessmentID, r.StudentID, nullable(r.StudentIDNumber), nullable(r.StudentName), nullable(r.Email),
		nullable(r.DepartmentName), nullable(r.BatchName), nullable(r.CollegeName), nullable(r.AdmissionType),
		string(r.Status), nullable(r.Score), nullable(r.PercentageScore), nullable(r.AttemptNumber),
		r.IsLate, r.IsDisqualified, nullableTime(r.StartedAt), nullableTime(r.SubmittedAt), nullableTime(r.GradedAt),
		nullable(r.TimeTaken),
	)
	return err
}

// ListSubmissions returns the submissions of an assessment in import order.
func (s *Store) ListSubmissions(assessmentID string) ([]model.SubmissionRecord, error) {
	rows, err := s.db.Query(
		`SELECT `+submissionColumns+` FROM submissions WHERE assessment_id = ? ORDER BY id`, assessmentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []model.SubmissionRecord
	for rows.Next() {
		var r model.SubmissionRecord
		if err := rows.Scan(
			&r.StudentID, &r.StudentIDNumber, &r.StudentName, &r.Email, &r.DepartmentName, &r.BatchName,
			&r.CollegeName, &r.AdmissionType, &r.Status, &r.Score, &r.PercentageScore, &r.AttemptNumber,
			&r.IsLate, &r.IsDisqualified, &r.StartedAt, &r.SubmittedAt, &r.GradedAt, &r.TimeTaken,
		); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// nullable turns an optional field into a driver value, NULL when unset.
func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
