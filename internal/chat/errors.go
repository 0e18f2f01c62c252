package chat

import "errors"

var (
	// ErrNetwork means no response was received at all.
	ErrNetwork = errors.New("no response from server")
	// ErrServer is any non-2xx response without a more specific mapping.
	ErrServer             = errors.New("server error")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrConflict           = errors.New("already exists")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrNoConversation     = errors.New("no conversation selected")
)
