package spatial

import "github.com/rotisserie/eris"

var ErrUnknownKind = eris.New("unknown partitioner kind")
