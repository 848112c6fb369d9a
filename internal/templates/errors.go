package templates

import "errors"

var (
	ErrTemplateNotFound    = errors.New("templates: template not found")
	ErrInvalidTemplateName = errors.New("templates: template name is required")
	ErrMissingSubject      = errors.New("templates: subject is required")
	ErrMissingTemplate     = errors.New("templates: template id is required")
	ErrNegativeDelay       = errors.New("templates: step delay cannot be negative")
)
