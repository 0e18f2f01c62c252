package realtime

import "errors"

var (
	ErrConnectFailed = errors.New("realtime: connection attempts exhausted")
	ErrClosed        = errors.New("realtime: channel closed")
	ErrSendQueueFull = errors.New("realtime: send queue full")
)
