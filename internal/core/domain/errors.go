package domain

import "errors"

var (
	ErrPeerNotFound     = errors.New("peer not found")
	ErrRoomNotFound     = errors.New("room not found")
	ErrConnectionClosed = errors.New("connection closed")
)
