package server

import "github.com/rotisserie/eris"

var (
	ErrNoTransport      = eris.New("no transport configured")
	ErrUnexpectedClient = eris.New("message type not accepted from clients")
)
