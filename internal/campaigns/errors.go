package campaigns

import "errors"

var (
	ErrCampaignNotFound  = errors.New("campaigns: campaign not found")
	ErrInvalidName       = errors.New("campaigns: name is required")
	ErrInvalidStatus     = errors.New("campaigns: unknown status")
	ErrInvalidTransition = errors.New("campaigns: status transition not allowed")
)
