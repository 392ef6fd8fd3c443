package sync

import (
	"bytes"
	"math"
	"slices"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/zeusync/arena/pkg/encoding"
	"github.com/zeusync/arena/pkg/generic"
)

// Text form:
//
//	object  {key:value,...}   keys sorted, dictionary keys written as codes
//	array   [value,...]
//	number  #bits             decimal float32 bit pattern
//	bool    + or -
//	null    @
//	string  dictionary code or "quoted" with \" and \\ escapes

var buffers = generic.NewResetPool(
	func() *bytes.Buffer { return new(bytes.Buffer) },
	func(b *bytes.Buffer) { b.Reset() },
)

// Write renders a value tree in the compact text form.
func Write(v any) (string, error) {
	buf := buffers.Get()
	defer buffers.Put(buf)

	if err := writeValue(buf, v); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func writeValue(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case encoding.Data:
		ks := make([]string, 0, len(val))
		for k := range val {
			ks = append(ks, k)
		}
		slices.Sort(ks)

		buf.WriteByte('{')
		for i, k := range ks {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(CompressKey(k))
			buf.WriteByte(':')
			if err := writeValue(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, x := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeValue(buf, x); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case nil:
		buf.WriteByte('@')
	case bool:
		if val {
			buf.WriteByte('+')
		} else {
			buf.WriteByte('-')
		}
	case string:
		if code, ok := keyToCode[val]; ok {
			buf.WriteString(code)
		} else {
			buf.WriteString(quote(val))
		}
	default:
		f, ok := encoding.ToFloat(val)
		if !ok {
			return eris.Wrapf(ErrUnexpectedType, "%T", v)
		}
		buf.WriteByte('#')
		buf.WriteString(strconv.FormatUint(uint64(math.Float32bits(float32(f))), 10))
	}
	return nil
}

// Read parses the compact text form.
func Read(s string) (any, error) {
	p := &parser{in: s}
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.in) {
		return nil, p.fail("trailing input")
	}
	return v, nil
}

// ReadData parses the compact text form of an object.
func ReadData(s string) (encoding.Data, error) {
	v, err := Read(s)
	if err != nil {
		return nil, err
	}
	d, ok := v.(encoding.Data)
	if !ok {
		return nil, eris.Wrapf(ErrUnexpectedType, "top level %T", v)
	}
	return d, nil
}

type parser struct {
	in  string
	pos int
}

func (p *parser) fail(what string) error {
	return eris.Wrapf(ErrMalformed, "%s at %d", what, p.pos)
}

func (p *parser) peek() (byte, bool) {
	if p.pos >= len(p.in) {
		return 0, false
	}
	return p.in[p.pos], true
}

func (p *parser) expect(c byte) error {
	got, ok := p.peek()
	if !ok || got != c {
		return p.fail("expected " + strconv.QuoteRune(rune(c)))
	}
	p.pos++
	return nil
}

func (p *parser) value() (any, error) {
	c, ok := p.peek()
	if !ok {
		return nil, p.fail("unexpected end")
	}
	switch c {
	case '{':
		return p.object()
	case '[':
		return p.array()
	case '"':
		return p.quoted()
	case '@':
		p.pos++
		return nil, nil
	case '+':
		p.pos++
		return true, nil
	case '-':
		p.pos++
		return false, nil
	case '#':
		p.pos++
		f, err := DecodeNumber(p.bare())
		if err != nil {
			return nil, p.fail("bad number")
		}
		return f, nil
	default:
		chunk := p.bare()
		if chunk == "" {
			return nil, p.fail("empty atom")
		}
		if key, ok := lookupCode(chunk); ok {
			return key, nil
		}
		return chunk, nil
	}
}

func (p *parser) object() (encoding.Data, error) {
	p.pos++
	out := encoding.Data{}
	if c, ok := p.peek(); ok && c == '}' {
		p.pos++
		return out, nil
	}
	for {
		var key string
		if c, ok := p.peek(); ok && c == '"' {
			s, err := p.quoted()
			if err != nil {
				return nil, err
			}
			key = s
		} else {
			chunk := p.bare()
			if chunk == "" {
				return nil, p.fail("empty key")
			}
			key = DecompressKey(chunk)
		}
		if err := p.expect(':'); err != nil {
			return nil, err
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		out[key] = v

		c, ok := p.peek()
		if !ok {
			return nil, p.fail("unterminated object")
		}
		p.pos++
		if c == '}' {
			return out, nil
		}
		if c != ',' {
			p.pos--
			return nil, p.fail("expected ',' or '}'")
		}
	}
}

func (p *parser) array() ([]any, error) {
	p.pos++
	out := []any{}
	if c, ok := p.peek(); ok && c == ']' {
		p.pos++
		return out, nil
	}
	for {
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		out = append(out, v)

		c, ok := p.peek()
		if !ok {
			return nil, p.fail("unterminated array")
		}
		p.pos++
		if c == ']' {
			return out, nil
		}
		if c != ',' {
			p.pos--
			return nil, p.fail("expected ',' or ']'")
		}
	}
}

func (p *parser) quoted() (string, error) {
	start := p.pos
	p.pos++
	for p.pos < len(p.in) {
		switch p.in[p.pos] {
		case '\\':
			p.pos += 2
		case '"':
			p.pos++
			s, ok := unquote(p.in[start:p.pos])
			if !ok {
				return "", p.fail("bad string")
			}
			return s, nil
		default:
			p.pos++
		}
	}
	return "", p.fail("unterminated string")
}

// bare scans up to the next structural character.
func (p *parser) bare() string {
	start := p.pos
	for p.pos < len(p.in) {
		switch p.in[p.pos] {
		case ',', ':', '{', '}', '[', ']':
			return p.in[start:p.pos]
		}
		p.pos++
	}
	return p.in[start:]
}
