package report

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/pavelanni/gradesheet/internal/model"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateConfiguration checks each configuration part on its own before
// any sheet is built. Advanced exports additionally need at least one
// known column selected.
func ValidateConfiguration(cfg model.ExportConfiguration, mode model.ExportMode) error {
	switch mode {
	case model.ModeDefault, model.ModeAdvanced:
	default:
		return fmt.Errorf("%w: unknown export mode %q", ErrConfiguration, mode)
	}
	if err := validate.Struct(cfg.Settings); err != nil {
		return fmt.Errorf("%w: settings: %w", ErrConfiguration, err)
	}
	if err := validate.Struct(cfg.Filters); err != nil {
		return fmt.Errorf("%w: filters: %w", ErrConfiguration, err)
	}
	if mode == model.ModeAdvanced {
		if _, err := ResolveCustomColumns(cfg.Columns); err != nil {
			return err
		}
	}
	return nil
}
