package report

import "github.com/pavelanni/gradesheet/internal/model"

// Labeler translates a label ID into display text. Implementations return
// the empty string (or the ID itself) for unknown IDs, in which case the
// built-in English text is used.
type Labeler interface {
	Label(id string) string
}

// Label IDs for sheet names, headers and summary captions.
const (
	LabelSheetPerformance     = "SheetPerformance"
	LabelSheetAbsentees       = "SheetAbsentees"
	LabelSheetAnalytics       = "SheetAnalytics"
	LabelSheetCustom          = "SheetCustom"
	LabelSheetCustomAbsentees = "SheetCustomAbsentees"
	LabelSheetInsights        = "SheetInsights"

	LabelColRollNumber       = "ColRollNumber"
	LabelColName             = "ColName"
	LabelColStudentName      = "ColStudentName"
	LabelColEmail            = "ColEmail"
	LabelColDepartment       = "ColDepartment"
	LabelColBatch            = "ColBatch"
	LabelColCollege          = "ColCollege"
	LabelColAdmissionType    = "ColAdmissionType"
	LabelColStatus           = "ColStatus"
	LabelColAttempt          = "ColAttempt"
	LabelColScore            = "ColScore"
	LabelColTotal            = "ColTotal"
	LabelColPercentage       = "ColPercentage"
	LabelColPerformanceLevel = "ColPerformanceLevel"
	LabelColTimeTaken        = "ColTimeTaken"
	LabelColLate             = "ColLate"
	LabelColDisqualified     = "ColDisqualified"
	LabelColStartedAt        = "ColStartedAt"
	LabelColSubmittedAt      = "ColSubmittedAt"
	LabelColGradedAt         = "ColGradedAt"
	LabelColMarksSuffix      = "ColMarksSuffix"

	LabelSumMetric         = "SumMetric"
	LabelSumValue          = "SumValue"
	LabelSumAssessment     = "SumAssessment"
	LabelSumAssessmentID   = "SumAssessmentID"
	LabelSumCollege        = "SumCollege"
	LabelSumGeneratedAt    = "SumGeneratedAt"
	LabelSumTotal          = "SumTotal"
	LabelSumPresent        = "SumPresent"
	LabelSumAbsent         = "SumAbsent"
	LabelSumAttendanceRate = "SumAttendanceRate"
	LabelSumAverageScore   = "SumAverageScore"
	LabelSumDistribution   = "SumDistribution"
	LabelSumStudents       = "SumStudents"
	LabelSumDepartment     = "SumDepartment"
	LabelSumBatch          = "SumBatch"
	LabelSumGroupTotal     = "SumGroupTotal"
)

var englishLabels = map[string]string{
	LabelSheetPerformance:     "Performance",
	LabelSheetAbsentees:       "Absentees",
	LabelSheetAnalytics:       "Analytics Summary",
	LabelSheetCustom:          "Custom Export",
	LabelSheetCustomAbsentees: "Custom Absentees",
	LabelSheetInsights:        "Insights",

	LabelColRollNumber:       "Roll Number",
	LabelColName:             "Name",
	LabelColStudentName:      "Student Name",
	LabelColEmail:            "Email",
	LabelColDepartment:       "Department",
	LabelColBatch:            "Batch",
	LabelColCollege:          "College",
	LabelColAdmissionType:    "Admission Type",
	LabelColStatus:           "Status",
	LabelColAttempt:          "Attempt",
	LabelColScore:            "Score",
	LabelColTotal:            "Total",
	LabelColPercentage:       "Percentage",
	LabelColPerformanceLevel: "Performance Level",
	LabelColTimeTaken:        "Time Taken",
	LabelColLate:             "Late Submission",
	LabelColDisqualified:     "Disqualified",
	LabelColStartedAt:        "Started At",
	LabelColSubmittedAt:      "Submitted At",
	LabelColGradedAt:         "Graded At",
	LabelColMarksSuffix:      "Marks",

	LabelSumMetric:         "Metric",
	LabelSumValue:          "Value",
	LabelSumAssessment:     "Assessment",
	LabelSumAssessmentID:   "Assessment ID",
	LabelSumCollege:        "College",
	LabelSumGeneratedAt:    "Generated At",
	LabelSumTotal:          "Total Students",
	LabelSumPresent:        "Present",
	LabelSumAbsent:         "Absent",
	LabelSumAttendanceRate: "Attendance Rate",
	LabelSumAverageScore:   "Average Score",
	LabelSumDistribution:   "Performance Distribution",
	LabelSumStudents:       "Students",
	LabelSumDepartment:     "Department",
	LabelSumBatch:          "Batch",
	LabelSumGroupTotal:     "Total",
}

// labels resolves IDs through an optional Labeler with English fallback.
type labels struct {
	l Labeler
}

func (ls labels) get(id string) string {
	if ls.l != nil {
		if s := ls.l.Label(id); s != "" && s != id {
			return s
		}
	}
	if s, ok := englishLabels[id]; ok {
		return s
	}
	return id
}

// questionType returns the display label for a question type. Localized
// labels use the ID "QType_<token>".
func (ls labels) questionType(t model.QuestionType) string {
	if ls.l != nil {
		id := "QType_" + string(t)
		if s := ls.l.Label(id); s != "" && s != id {
			return s
		}
	}
	return QuestionTypeLabel(t)
}

// EnglishLabel returns the built-in English text for a label ID.
func EnglishLabel(id string) string {
	return labels{}.get(id)
}
