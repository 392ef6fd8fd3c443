package world

import (
	"github.com/rotisserie/eris"
	"github.com/zeusync/arena/internal/core/observability/log"
	"github.com/zeusync/arena/internal/core/sync"
	"github.com/zeusync/arena/pkg/encoding"
)

// RegisterEntity makes typ constructible by name.
func (w *World) RegisterEntity(typ string, ctor Constructor) error {
	if typ == "" {
		return ErrEmptyType
	}
	if _, exists := w.ctors[typ]; exists {
		return eris.Wrapf(ErrDuplicateType, "register %q", typ)
	}
	w.ctors[typ] = ctor
	return nil
}

// RegisterTemplateEntity registers typ as base with fields applied on top of
// every new instance. Templates may extend other templates.
func (w *World) RegisterTemplateEntity(typ, base string, fields encoding.Data) error {
	parent, ok := w.ctors[base]
	if !ok {
		return eris.Wrapf(ErrUnknownBase, "template %q extends %q", typ, base)
	}

	defaults := sync.Copy(fields)
	err := w.RegisterEntity(typ, func() Entity {
		e := parent()
		e.Deserialize(sync.Copy(defaults))
		return e
	})
	if err != nil {
		return err
	}

	w.logger.Debug("Template registered", log.String("type", typ), log.String("extends", base))
	return nil
}

// Types lists the registered type names.
func (w *World) Types() []string {
	out := make([]string, 0, len(w.ctors))
	for typ := range w.ctors {
		out = append(out, typ)
	}
	return out
}
