package config

import "github.com/rotisserie/eris"

var ErrInvalid = eris.New("invalid configuration")
