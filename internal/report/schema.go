package report

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/pavelanni/gradesheet/internal/model"
)

// DefaultPalette is the question-type list used when an assessment carries
// no usable question data, so that sheets keep a stable shape.
var DefaultPalette = []model.QuestionType{
	"multiple_choice",
	"true_false",
	"short_answer",
	"essay",
	"coding",
	"fill_in_blanks",
	"matching",
	"ordering",
	"file_upload",
}

var questionTypeLabels = map[model.QuestionType]string{
	"multiple_choice": "MCQ",
	"true_false":      "True/False",
	"short_answer":    "Short Answer",
	"essay":           "Essay",
	"coding":          "Coding",
	"fill_in_blanks":  "Fill in the Blanks",
	"matching":        "Matching",
	"ordering":        "Ordering",
	"file_upload":     "File Upload",
}

// QuestionTypeLabel returns the fixed display label for a question type.
// Unknown tokens are upper-cased with underscores replaced by spaces.
func QuestionTypeLabel(t model.QuestionType) string {
	if l, ok := questionTypeLabels[t]; ok {
		return l
	}
	return strings.ToUpper(strings.ReplaceAll(string(t), "_", " "))
}

// SchemaColumn is one dynamic, question-type-dependent column.
type SchemaColumn struct {
	Type  model.QuestionType
	Label string
}

// Schema is the ordered list of dynamic columns for an assessment.
type Schema []SchemaColumn

// Types returns the question types in schema order.
func (s Schema) Types() []model.QuestionType {
	out := make([]model.QuestionType, len(s))
	for i, c := range s {
		out[i] = c.Type
	}
	return out
}

// SchemaStrategy produces an ordered list of question types, or nothing
// if it cannot resolve one for the assessment.
type SchemaStrategy struct {
	Name    string
	Resolve func(model.AssessmentMetadata) []model.QuestionType
}

// DeclaredTypes uses the assessment's explicit question-type list.
var DeclaredTypes = SchemaStrategy{
	Name: "declared",
	Resolve: func(a model.AssessmentMetadata) []model.QuestionType {
		types := make([]model.QuestionType, 0, len(a.QuestionTypes))
		for _, qt := range a.QuestionTypes {
			types = append(types, qt.Type)
		}
		return distinctTypes(types)
	},
}

// QuestionDerivedTypes derives the distinct types from the question objects.
var QuestionDerivedTypes = SchemaStrategy{
	Name: "questions",
	Resolve: func(a model.AssessmentMetadata) []model.QuestionType {
		types := make([]model.QuestionType, 0, len(a.Questions))
		for _, q := range a.Questions {
			types = append(types, q.QuestionType)
		}
		return distinctTypes(types)
	},
}

// PaletteTypes always yields DefaultPalette.
var PaletteTypes = SchemaStrategy{
	Name: "palette",
	Resolve: func(model.AssessmentMetadata) []model.QuestionType {
		return append([]model.QuestionType(nil), DefaultPalette...)
	},
}

// DefaultSchemaStrategies is the resolution chain used by the engine.
var DefaultSchemaStrategies = []SchemaStrategy{DeclaredTypes, QuestionDerivedTypes, PaletteTypes}

// ResolveSchema tries each strategy in order and returns the first
// non-empty result. It fails with ErrDataShape only when every strategy
// comes back empty.
func ResolveSchema(a model.AssessmentMetadata, strategies ...SchemaStrategy) (Schema, error) {
	return resolveSchema(a, labels{}, strategies)
}

func resolveSchema(a model.AssessmentMetadata, ls labels, strategies []SchemaStrategy) (Schema, error) {
	if len(strategies) == 0 {
		strategies = DefaultSchemaStrategies
	}
	for i, st := range strategies {
		types := st.Resolve(a)
		if len(types) == 0 {
			continue
		}
		if i > 0 {
			slog.Debug("question types resolved by fallback strategy",
				"assessment_id", a.ID, "strategy", st.Name)
		}
		schema := make(Schema, len(types))
		for j, t := range types {
			schema[j] = SchemaColumn{Type: t, Label: ls.questionType(t)}
		}
		return schema, nil
	}
	return nil, fmt.Errorf("%w: no question types resolvable for assessment %q", ErrDataShape, a.ID)
}

// distinctTypes deduplicates, keeping first-occurrence order and dropping blanks.
func distinctTypes(in []model.QuestionType) []model.QuestionType {
	seen := make(map[model.QuestionType]bool, len(in))
	var out []model.QuestionType
	for _, t := range in {
		t = model.QuestionType(strings.TrimSpace(string(t)))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
