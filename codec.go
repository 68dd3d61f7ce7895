package main

import (
	"encoding/binary"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrInvalidOpcode and ErrInvalidKeyUTF8 are fatal decode errors: the codec
// has lost frame alignment and the connection must be closed rather than
// resynchronized (spec §7).
var (
	ErrInvalidOpcode  = fmt.Errorf("bytekv: invalid opcode")
	ErrInvalidKeyUTF8 = fmt.Errorf("bytekv: key is not valid UTF-8")
)

// DecodeCommand attempts to decode one Command from the front of buf.
//
// It returns (cmd, n, nil) when a full frame was present: n is the number of
// bytes consumed from buf's front. It returns (Command{}, 0, nil) when buf
// does not yet hold a complete frame ("need more bytes"); buf is never
// modified by the caller-visible contract (the length fields are only
// inspected, not consumed, until the whole frame is known to be present).
// It returns a non-nil error on a fatal decode error (unknown opcode,
// invalid UTF-8 in a GET key); the caller must close the connection without
// attempting to resynchronize.
func DecodeCommand(buf []byte) (cmd Command, n int, err error) {
	if len(buf) == 0 {
		return Command{}, 0, nil
	}

	switch buf[0] {
	case OpPing:
		return Command{Kind: CmdPing}, 1, nil

	case OpGet:
		const headerLen = 1 + 4
		if len(buf) < headerLen {
			return Command{}, 0, nil
		}
		keyLen := binary.BigEndian.Uint32(buf[1:5])
		total := headerLen + int(keyLen)
		if len(buf) < total {
			return Command{}, 0, nil
		}
		keyBytes := buf[headerLen:total]
		if !utf8.Valid(keyBytes) {
			return Command{}, 0, ErrInvalidKeyUTF8
		}
		return Command{Kind: CmdGet, Key: string(keyBytes)}, total, nil

	case OpSet:
		const fixedHeaderLen = 1 + 4 // opcode + key_len
		if len(buf) < fixedHeaderLen {
			return Command{}, 0, nil
		}
		keyLen := int(binary.BigEndian.Uint32(buf[1:5]))
		afterKey := fixedHeaderLen + keyLen

		const valLenFieldLen = 4
		if len(buf) < afterKey+valLenFieldLen {
			return Command{}, 0, nil
		}
		valLen := int(binary.BigEndian.Uint32(buf[afterKey : afterKey+valLenFieldLen]))
		afterVal := afterKey + valLenFieldLen + valLen

		const ttlFieldLen = 8
		total := afterVal + ttlFieldLen
		if len(buf) < total {
			return Command{}, 0, nil
		}

		keyBytes := buf[fixedHeaderLen:afterKey]
		// SET tolerates invalid UTF-8 in the key via lossy replacement; GET
		// rejects it outright. This asymmetry is preserved deliberately —
		// see spec §9 open questions — not a bug to fix silently.
		key := strings.ToValidUTF8(string(keyBytes), "�")

		value := make([]byte, valLen)
		copy(value, buf[afterKey+valLenFieldLen:afterVal])

		ttl := binary.BigEndian.Uint64(buf[afterVal:total])

		return Command{Kind: CmdSet, Key: key, Value: value, TTL: ttl}, total, nil

	default:
		return Command{}, 0, ErrInvalidOpcode
	}
}

// EncodeCommand renders a Command back into its wire frame. Used only by
// tests to exercise decode(encode(c)) == c round trips; the server never
// originates a command frame.
func EncodeCommand(cmd Command) []byte {
	switch cmd.Kind {
	case CmdPing:
		return []byte{OpPing}

	case CmdGet:
		keyBytes := []byte(cmd.Key)
		out := make([]byte, 1+4+len(keyBytes))
		out[0] = OpGet
		binary.BigEndian.PutUint32(out[1:5], uint32(len(keyBytes)))
		copy(out[5:], keyBytes)
		return out

	case CmdSet:
		keyBytes := []byte(cmd.Key)
		out := make([]byte, 1+4+len(keyBytes)+4+len(cmd.Value)+8)
		out[0] = OpSet
		binary.BigEndian.PutUint32(out[1:5], uint32(len(keyBytes)))
		offset := 5
		copy(out[offset:], keyBytes)
		offset += len(keyBytes)
		binary.BigEndian.PutUint32(out[offset:offset+4], uint32(len(cmd.Value)))
		offset += 4
		copy(out[offset:], cmd.Value)
		offset += len(cmd.Value)
		binary.BigEndian.PutUint64(out[offset:offset+8], cmd.TTL)
		return out

	default:
		return nil
	}
}

// EncodeResponse renders a Response into its wire frame. Never fails except
// for I/O errors when the result is written to a socket, which is the
// caller's concern, not the codec's.
func EncodeResponse(resp Response) []byte {
	switch resp.Kind {
	case RespOK:
		return []byte{StatusOK}

	case RespNotFound:
		return []byte{StatusNotFound}

	case RespFound:
		out := make([]byte, 1+4+len(resp.Value))
		out[0] = StatusFound
		binary.BigEndian.PutUint32(out[1:5], uint32(len(resp.Value)))
		copy(out[5:], resp.Value)
		return out

	case RespError:
		msgBytes := []byte(resp.Message)
		out := make([]byte, 1+4+len(msgBytes))
		out[0] = StatusError
		binary.BigEndian.PutUint32(out[1:5], uint32(len(msgBytes)))
		copy(out[5:], msgBytes)
		return out

	default:
		return nil
	}
}

// FrameDecoder accumulates bytes read off a connection and yields Commands
// as complete frames become available, tolerating arbitrary TCP
// fragmentation. It is the stateful-but-resumable wrapper the connection
// handler drives; DecodeCommand itself stays a pure, stateless function so
// it can be unit-tested against raw byte slices directly.
type FrameDecoder struct {
	buf []byte
}

// NewFrameDecoder returns an empty decoder ready to Feed.
func NewFrameDecoder() *FrameDecoder {
	return &FrameDecoder{}
}

// Feed appends newly-read bytes to the decoder's internal buffer.
func (d *FrameDecoder) Feed(b []byte) {
	d.buf = append(d.buf, b...)
}

// Grow is a hint that at least n more bytes are expected, letting the
// decoder pre-size its buffer and amortize growth; it never consumes or
// discards buffered bytes.
func (d *FrameDecoder) Grow(n int) {
	if cap(d.buf)-len(d.buf) >= n {
		return
	}
	grown := make([]byte, len(d.buf), len(d.buf)+n)
	copy(grown, d.buf)
	d.buf = grown
}

// Next attempts to decode the next Command from buffered bytes.
//
// ok is true iff a full frame was decoded and consumed. When ok is false and
// err is nil, the decoder needs more bytes — call Feed and retry. When err
// is non-nil, the frame stream is unrecoverable and the connection must be
// closed.
//
// Once enough of the header has arrived to know the frame's total size, Next
// reserves room for the rest of it up front via Grow, the same way
// decoder.rs's src.reserve(key_len) amortizes growth while accumulating a
// key or value across several reads instead of reallocating on every Feed.
func (d *FrameDecoder) Next() (cmd Command, ok bool, err error) {
	cmd, n, err := DecodeCommand(d.buf)
	if err != nil {
		return Command{}, false, err
	}
	if n == 0 {
		if total, known := peekFrameLen(d.buf); known {
			d.Grow(total - len(d.buf))
		}
		return Command{}, false, nil
	}
	d.buf = append(d.buf[:0], d.buf[n:]...)
	return cmd, true, nil
}

// peekFrameLen reports the total wire size of the frame at the front of buf
// without consuming it, as soon as enough of the header has arrived to
// compute it. It returns ok == false when buf doesn't yet hold enough bytes
// to know the total length.
func peekFrameLen(buf []byte) (total int, ok bool) {
	if len(buf) == 0 {
		return 0, false
	}

	switch buf[0] {
	case OpPing:
		return 1, true

	case OpGet:
		const headerLen = 1 + 4
		if len(buf) < headerLen {
			return 0, false
		}
		keyLen := binary.BigEndian.Uint32(buf[1:5])
		return headerLen + int(keyLen), true

	case OpSet:
		const fixedHeaderLen = 1 + 4
		if len(buf) < fixedHeaderLen {
			return 0, false
		}
		keyLen := int(binary.BigEndian.Uint32(buf[1:5]))
		afterKey := fixedHeaderLen + keyLen

		const valLenFieldLen = 4
		if len(buf) < afterKey+valLenFieldLen {
			return 0, false
		}
		valLen := int(binary.BigEndian.Uint32(buf[afterKey : afterKey+valLenFieldLen]))

		const ttlFieldLen = 8
		return afterKey + valLenFieldLen + valLen + ttlFieldLen, true

	default:
		return 0, false
	}
}
