package apperror

import "errors"

var (
	ErrConnect           = errors.New("server is unreachable")
	ErrNotConnected      = errors.New("client is not connected")
	ErrSend              = errors.New("failed to deliver message")
	ErrDecode            = errors.New("malformed move message")
	ErrInvalidCoordinate = errors.New("coordinate out of wire range")
	ErrBind              = errors.New("failed to bind listener")
	ErrSessionEnded      = errors.New("session has ended")
	ErrNoActiveSession   = errors.New("no active session")
	ErrConnectionLost    = errors.New("connection to server lost")
)
