package main

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCommandPing(t *testing.T) {
	cmd, n, err := DecodeCommand([]byte{OpPing})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, CmdPing, cmd.Kind)
}

func TestDecodeCommandGetRoundTrip(t *testing.T) {
	cmd := Command{Kind: CmdGet, Key: "hello"}
	wire := EncodeCommand(cmd)

	got, n, err := DecodeCommand(wire)
	require.NoError(t, err)
	assert.Equal(t, len(wire), n)
	assert.Equal(t, cmd.Kind, got.Kind)
	assert.Equal(t, cmd.Key, got.Key)
}

func TestDecodeCommandSetRoundTrip(t *testing.T) {
	cmd := Command{Kind: CmdSet, Key: "k", Value: []byte("some value"), TTL: 42}
	wire := EncodeCommand(cmd)

	got, n, err := DecodeCommand(wire)
	require.NoError(t, err)
	assert.Equal(t, len(wire), n)
	assert.Equal(t, cmd, got)
}

func TestDecodeCommandNeedsMoreBytes(t *testing.T) {
	cmd := Command{Kind: CmdSet, Key: "k", Value: []byte("value"), TTL: 1}
	wire := EncodeCommand(cmd)

	for i := 0; i < len(wire); i++ {
		got, n, err := DecodeCommand(wire[:i])
		require.NoError(t, err)
		assert.Equal(t, 0, n)
		assert.Equal(t, Command{}, got)
	}
}

func TestDecodeCommandInvalidOpcode(t *testing.T) {
	_, _, err := DecodeCommand([]byte{0x99})
	assert.ErrorIs(t, err, ErrInvalidOpcode)
}

func TestDecodeCommandGetRejectsInvalidUTF8Key(t *testing.T) {
	keyBytes := []byte{0xff, 0xfe}
	buf := make([]byte, 1+4+len(keyBytes))
	buf[0] = OpGet
	binary.BigEndian.PutUint32(buf[1:5], uint32(len(keyBytes)))
	copy(buf[5:], keyBytes)

	_, _, err := DecodeCommand(buf)
	assert.ErrorIs(t, err, ErrInvalidKeyUTF8)
}

func TestDecodeCommandSetToleratesInvalidUTF8Key(t *testing.T) {
	keyBytes := []byte{0xff, 0xfe}
	afterKey := 1 + 4 + len(keyBytes)
	value := []byte("v")
	buf := make([]byte, afterKey+4+len(value)+8)
	buf[0] = OpSet
	binary.BigEndian.PutUint32(buf[1:5], uint32(len(keyBytes)))
	copy(buf[5:afterKey], keyBytes)
	binary.BigEndian.PutUint32(buf[afterKey:afterKey+4], uint32(len(value)))
	copy(buf[afterKey+4:], value)

	cmd, n, err := DecodeCommand(buf)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)
	assert.Equal(t, CmdSet, cmd.Kind)
	assert.NotContains(t, cmd.Key, string(keyBytes))
}

func TestFrameDecoderHandlesFragmentation(t *testing.T) {
	cmd := Command{Kind: CmdSet, Key: "fragmented", Value: []byte("payload"), TTL: 7}
	wire := EncodeCommand(cmd)

	d := NewFrameDecoder()

	for i := 0; i < len(wire)-1; i++ {
		d.Feed(wire[i : i+1])
		got, ok, err := d.Next()
		require.NoError(t, err)
		require.False(t, ok, "must not decode before the full frame has arrived")
		assert.Equal(t, Command{}, got)
	}

	d.Feed(wire[len(wire)-1:])
	got, ok, err := d.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, cmd, got)
}

func TestFrameDecoderHandlesMultipleFramesInOneFeed(t *testing.T) {
	d := NewFrameDecoder()
	d.Feed(EncodeCommand(Command{Kind: CmdPing}))
	d.Feed(EncodeCommand(Command{Kind: CmdGet, Key: "x"}))

	first, ok, err := d.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, CmdPing, first.Kind)

	second, ok, err := d.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, CmdGet, second.Kind)
	assert.Equal(t, "x", second.Key)
}

func TestEncodeResponse(t *testing.T) {
	assert.Equal(t, []byte{StatusOK}, EncodeResponse(OKResponse()))
	assert.Equal(t, []byte{StatusNotFound}, EncodeResponse(NotFoundResponse()))

	found := EncodeResponse(FoundResponse([]byte("abc")))
	assert.Equal(t, byte(StatusFound), found[0])
	assert.Equal(t, uint32(3), binary.BigEndian.Uint32(found[1:5]))
	assert.Equal(t, []byte("abc"), found[5:])

	errResp := EncodeResponse(ErrorResponse("bad"))
	assert.Equal(t, byte(StatusError), errResp[0])
	assert.Equal(t, "bad", string(errResp[5:]))
}
