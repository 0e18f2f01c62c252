package store

import "errors"

var (
	ErrUnauthenticated    = errors.New("authentication required")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrConflict           = errors.New("username or email already exists")
	ErrNotFound           = errors.New("entity not found")
	ErrForbidden          = errors.New("not the owner")
	ErrCommentTooLong     = errors.New("comment exceeds 140 characters")
	ErrTooManyTags        = errors.New("a meme can carry at most 5 tags")
)
