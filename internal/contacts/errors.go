package contacts

import "errors"

var (
	ErrContactNotFound = errors.New("contacts: contact not found")
	ErrMissingCampaign = errors.New("contacts: campaign id is required")
	ErrInvalidEmail    = errors.New("contacts: valid email is required")
	ErrDuplicateEmail  = errors.New("contacts: email already enrolled")
	ErrInvalidStatus   = errors.New("contacts: unknown contact status")
)
