package core

import (
	"errors"

	"cardgen/internal/dictionary"
	"cardgen/internal/source"
	"cardgen/pkg/schema"
)

// ClassifyError maps a pipeline error to its machine-readable type.
func ClassifyError(err error) string {
	var cfgErr *dictionary.ConfigMissingError
	if errors.As(err, &cfgErr) {
		return schema.ErrorTypeConfigMissing
	}

	var nfErr *source.NotFoundError
	if errors.As(err, &nfErr) {
		return schema.ErrorTypeNotFound
	}

	return schema.ErrorTypeUnexpected
}
