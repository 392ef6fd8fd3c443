package world

import (
	"bytes"
	_ "embed"
	"errors"
	"io"

	"github.com/rotisserie/eris"
	"github.com/zeusync/arena/pkg/encoding"
	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var defaultTemplates []byte

// LoadDefaultTemplates registers the templates every server and client
// shares, such as Hero and Wall.
func (w *World) LoadDefaultTemplates() error {
	return w.LoadTemplates(bytes.NewReader(defaultTemplates))
}

// Template describes an entity type derived from a registered one.
type Template struct {
	Type    string         `yaml:"type"`
	Extends string         `yaml:"extends"`
	Fields  map[string]any `yaml:"fields"`
}

type templateFile struct {
	Templates []Template `yaml:"templates"`
}

// LoadTemplates parses a YAML template list and registers it in order, so a
// template may extend one declared above it.
func (w *World) LoadTemplates(r io.Reader) error {
	var file templateFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return eris.Wrap(err, "decode templates")
	}

	for _, t := range file.Templates {
		if err := w.RegisterTemplateEntity(t.Type, t.Extends, normalize(t.Fields)); err != nil {
			return err
		}
	}
	return nil
}

// normalize converts decoded YAML into a value tree.
func normalize(m map[string]any) encoding.Data {
	out := make(encoding.Data, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return normalize(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalizeValue(item)
		}
		return out
	default:
		if f, ok := encoding.ToFloat(t); ok {
			return f
		}
		return t
	}
}
