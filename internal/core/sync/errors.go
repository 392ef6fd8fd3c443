package sync

import "github.com/rotisserie/eris"

var (
	ErrMalformed       = eris.New("malformed encoded value")
	ErrUnknownEncoding = eris.New("unknown encoding")
	ErrUnexpectedType  = eris.New("unexpected value type")
	ErrMissingType     = eris.New("message has no type")
)
