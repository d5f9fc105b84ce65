package feeders

import "errors"

// Static errors for feeders package
var (
	ErrUnsupportedFileType = errors.New("unsupported config file type")
	ErrInvalidStructure    = errors.New("expected pointer to struct")
	ErrEmptyAffix          = errors.New("env: prefix or suffix cannot be empty")
	ErrFieldCannotBeSet    = errors.New("field cannot be set")
	ErrSectionNotMapping   = errors.New("config section is not a mapping")
)
