package protocol

import (
	"bytes"
	"io"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrames(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte("hello")))
	require.NoError(t, WriteFrame(&buf, nil))
	require.NoError(t, WriteFrame(&buf, []byte("{0:q}")))

	for _, want := range []string{"hello", "", "{0:q}"} {
		got, err := ReadFrame(&buf, DefaultMaxFrameSize)
		require.NoError(t, err)
		assert.Equal(t, want, string(got))
	}

	_, err := ReadFrame(&buf, DefaultMaxFrameSize)
	assert.ErrorIs(t, err, io.EOF)
}

func TestFrameTooLarge(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, make([]byte, 64)))

	_, err := ReadFrame(&buf, 16)
	assert.True(t, eris.Is(err, ErrMessageTooLarge))
}

func TestPeers(t *testing.T) {
	p := NewPeers[int]()
	a, b := NewClientID(), NewClientID()
	assert.NotEqual(t, a, b)

	p.Add(a, 1)
	p.Add(b, 2)
	assert.Equal(t, 2, p.Len())

	v, ok := p.Get(a)
	require.True(t, ok)
	assert.Equal(t, 1, v)

	sum := 0
	p.Each(func(_ ClientID, c int) { sum += c })
	assert.Equal(t, 3, sum)

	v, ok = p.Remove(b)
	assert.True(t, ok)
	assert.Equal(t, 2, v)
	_, ok = p.Remove(b)
	assert.False(t, ok)
}

func TestHandlerFuncs(t *testing.T) {
	var got []string
	h := HandlerFuncs{
		Connect: func(id ClientID) { got = append(got, "connect "+id) },
		Message: func(id ClientID, payload []byte) { got = append(got, id+" "+string(payload)) },
	}
	h.OnConnect("a")
	h.OnMessage("a", []byte("hi"))
	h.OnDisconnect("a")

	assert.Equal(t, []string{"connect a", "a hi"}, got)
}
