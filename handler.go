package main

import (
	"errors"
	"io"
	"net"
	"time"
)

// handleConnection is the per-socket command loop: decode a command,
// consult the Store, encode a response, flush, repeat. It terminates on
// peer half-close, a decode error (fatal — no resync attempted), or a
// read/write error, matching spec §4.4/§7. Its frame decoder and read
// buffer belong to this connection alone; what it shares with other
// connections is the Store, the Server's Stats counters and its BytePool.
func (s *Server) handleConnection(conn net.Conn) {
	remote := conn.RemoteAddr()
	defer func() {
		conn.Close()
		s.logger.Debug().Stringer("addr", remote).Msg("connection closed")
	}()
	s.logger.Debug().Stringer("addr", remote).Msg("connection accepted")

	decoder := NewFrameDecoder()
	readBuf := s.bufPool.Get(4096)
	defer s.bufPool.Put(readBuf)

	for {
		cmd, ok, err := decoder.Next()
		if err != nil {
			s.logger.Warn().Stringer("addr", remote).Err(err).Msg("decode error, closing connection")
			return
		}
		if !ok {
			if s.config.ReadTimeout > 0 {
				conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
			}
			n, err := conn.Read(readBuf)
			if n > 0 {
				decoder.Feed(readBuf[:n])
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					s.logger.Warn().Stringer("addr", remote).Err(err).Msg("read error, closing connection")
				}
				return
			}
			continue
		}

		resp := s.dispatch(cmd)

		if s.config.WriteTimeout > 0 {
			conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
		}
		if _, err := conn.Write(EncodeResponse(resp)); err != nil {
			s.logger.Warn().Stringer("addr", remote).Err(err).Msg("write error, closing connection")
			return
		}
	}
}

// dispatch consults the Store for one decoded Command and builds the
// matching Response. It never blocks beyond the Store's own brief shard
// locks.
func (s *Server) dispatch(cmd Command) Response {
	switch cmd.Kind {
	case CmdPing:
		s.stats.incPing()
		return OKResponse()

	case CmdGet:
		s.stats.incGet()
		value, found := s.store.Get(cmd.Key)
		if !found {
			s.stats.incMiss()
			return NotFoundResponse()
		}
		s.stats.incHit()
		out := make([]byte, len(value))
		copy(out, value)
		return FoundResponse(out)

	case CmdSet:
		s.stats.incSet()
		ttl := time.Duration(cmd.TTL) * time.Second
		s.store.Set(cmd.Key, cmd.Value, ttl)
		return OKResponse()

	default:
		return ErrorResponse("unknown command")
	}
}
