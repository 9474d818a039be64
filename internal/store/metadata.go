package store

import (
	"bytes"
	"crypto/sha256"
	"database/sql"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/pavelanni/gradesheet/internal/model"
)

// ErrInvalidDataset is returned when an imported file is not a usable dataset.
var ErrInvalidDataset = errors.New("invalid dataset")

//go:embed dataset.schema.json
var datasetSchemaJSON []byte

var (
	schemaOnce    sync.Once
	datasetSchema *jsonschema.Schema
	schemaErr     error
)

func compiledDatasetSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource("dataset.schema.json", bytes.NewReader(datasetSchemaJSON)); err != nil {
			schemaErr = err
			return
		}
		datasetSchema, schemaErr = c.Compile("dataset.schema.json")
	})
	return datasetSchema, schemaErr
}

// ValidateDataset checks raw dataset JSON against the embedded schema.
func ValidateDataset(data []byte) error {
	sch, err := compiledDatasetSchema()
	if err != nil {
		return fmt.Errorf("compile dataset schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDataset, err)
	}
	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDataset, err)
	}
	return nil
}

// ImportResult describes the outcome of ImportDataset.
type ImportResult struct {
	AssessmentID string
	Submissions  int
	Skipped      bool // the same file content was imported before
}

// GetImportedFileHash returns the stored hash for a source path.
// Returns empty string and nil error if the path was never imported.
func (s *Store) GetImportedFileHash(path string) (string, error) {
	var hash string
	err := s.db.QueryRow(`SELECT hash FROM imported_files WHERE path = ?`, path).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return hash, err
}

// SetImportedFileHash upserts the hash recorded for a source path.
func (s *Store) SetImportedFileHash(path, hash string) error {
	return setImportedFileHash(s.db, path, hash)
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func setImportedFileHash(db execer, path, hash string) error {
	_, err := db.Exec(
		`INSERT INTO imported_files (path, hash, imported_at) VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET hash = excluded.hash, imported_at = excluded.imported_at`,
		path, hash, time.Now().UTC(),
	)
	return err
}

// ImportDataset loads a JSON dataset read from source. A file whose content
// hash matches the last import of the same source is skipped; changed content
// replaces the stored assessment and its submissions.
func (s *Store) ImportDataset(source string, data []byte) (ImportResult, error) {
	hash := sha256sum(data)
	stored, err := s.GetImportedFileHash(source)
	if err != nil {
		return ImportResult{}, fmt.Errorf("check import status for %s: %w", source, err)
	}

	if err := ValidateDataset(data); err != nil {
		return ImportResult{}, fmt.Errorf("%s: %w", source, err)
	}
	var ds model.Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return ImportResult{}, fmt.Errorf("%w: parse %s: %w", ErrInvalidDataset, source, err)
	}
	res := ImportResult{AssessmentID: ds.Assessment.ID, Submissions: len(ds.Submissions)}

	if stored == hash {
		slog.Info("dataset unchanged, skipping", "source", source, "assessment", res.AssessmentID)
		res.Skipped = true
		return res, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return res, err
	}
	defer tx.Rollback()

	if err := saveAssessment(tx, ds); err != nil {
		return res, fmt.Errorf("save %s: %w", source, err)
	}
	if err := setImportedFileHash(tx, source, hash); err != nil {
		return res, fmt.Errorf("record import for %s: %w", source, err)
	}
	if err := tx.Commit(); err != nil {
		return res, err
	}

	slog.Info("imported dataset", "source", source, "assessment", res.AssessmentID,
		"submissions", res.Submissions, "replaced", stored != "")
	return res, nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
