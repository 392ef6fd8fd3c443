package sync

import (
	"github.com/rotisserie/eris"
	"github.com/zeusync/arena/pkg/encoding"
)

// Encoding selects the wire form of messages.
type Encoding string

const (
	EncodingText   Encoding = "text"
	EncodingBinary Encoding = "binary"
)

// ParseEncoding validates a configured encoding name.
func ParseEncoding(s string) (Encoding, error) {
	switch Encoding(s) {
	case EncodingText, EncodingBinary:
		return Encoding(s), nil
	case "":
		return EncodingText, nil
	default:
		return "", eris.Wrapf(ErrUnknownEncoding, "encoding %q", s)
	}
}

// Message is the unit exchanged with clients.
type Message struct {
	Type string
	Data encoding.Data
}

func (m Message) envelope() encoding.Data {
	data := m.Data
	if data == nil {
		data = encoding.Data{}
	}
	return encoding.Data{"type": m.Type, "data": data}
}

// EncodeMessage renders m in the requested encoding.
func EncodeMessage(m Message, enc Encoding) ([]byte, error) {
	if m.Type == "" {
		return nil, ErrMissingType
	}
	switch enc {
	case EncodingText, "":
		s, err := Write(m.envelope())
		if err != nil {
			return nil, eris.Wrapf(err, "encode %s", m.Type)
		}
		return []byte(s), nil
	case EncodingBinary:
		b, err := EncodeBinary(m.envelope())
		if err != nil {
			return nil, eris.Wrapf(err, "encode %s", m.Type)
		}
		return b, nil
	default:
		return nil, eris.Wrapf(ErrUnknownEncoding, "encoding %q", enc)
	}
}

// DecodeMessage parses a payload produced by EncodeMessage.
func DecodeMessage(b []byte, enc Encoding) (Message, error) {
	var (
		env encoding.Data
		err error
	)
	switch enc {
	case EncodingText, "":
		env, err = ReadData(string(b))
	case EncodingBinary:
		env, err = DecodeBinary(b)
	default:
		return Message{}, eris.Wrapf(ErrUnknownEncoding, "encoding %q", enc)
	}
	if err != nil {
		return Message{}, eris.Wrap(err, "decode message")
	}

	typ, _ := encoding.String(env, "type")
	if typ == "" {
		return Message{}, ErrMissingType
	}
	data, _ := encoding.Object(env, "data")
	if data == nil {
		data = encoding.Data{}
	}
	return Message{Type: typ, Data: data}, nil
}
