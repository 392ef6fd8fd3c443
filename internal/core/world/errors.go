package world

import "github.com/rotisserie/eris"

var (
	ErrDuplicateType = eris.New("entity type already registered")
	ErrUnknownBase   = eris.New("template base type not registered")
	ErrUnknownType   = eris.New("entity type not registered")
	ErrEmptyType     = eris.New("entity type name is empty")
)
