package report

import "errors"

var (
	// ErrConfiguration reports an export configuration that cannot produce a report.
	ErrConfiguration = errors.New("configuration error")
	// ErrDataShape reports assessment metadata from which no column schema could be resolved.
	ErrDataShape = errors.New("data shape error")
)
