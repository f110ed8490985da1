package domain

import "errors"

var (
	ErrInvalidVibe = errors.New("invalid vibe")
	ErrVoteFailed  = errors.New("vote failed")
	ErrLoadFailed  = errors.New("failed to load votes")
)
