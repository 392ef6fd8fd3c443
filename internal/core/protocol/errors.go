package protocol

import "github.com/rotisserie/eris"

var (
	ErrClientNotFound   = eris.New("client not found")
	ErrConnectionClosed = eris.New("connection is closed")
	ErrMessageTooLarge  = eris.New("message too large")
)
