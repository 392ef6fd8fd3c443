package client

import "github.com/rotisserie/eris"

// Client-specific errors
var (
	ErrClientClosed  = eris.New("client is closed")
	ErrInvalidConfig = eris.New("invalid client configuration")
)
