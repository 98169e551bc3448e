package chat

import "errors"

var (
	ErrEmptyBody       = errors.New("message body is empty")
	ErrPeerNotFound    = errors.New("peer not found")
	ErrChannelNotFound = errors.New("channel not found")
	ErrSelfMessage     = errors.New("cannot open a direct channel with yourself")
)
