package session

import (
	"encoding/base64"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/vango-go/live-gateway/pkg/gateway/live/protocol"
)

// relayClientMessages pumps client envelopes into the agent backend until
// the client disconnects or the session is canceled. Malformed messages are
// logged and skipped; only a dead transport ends the loop.
func (s *Session) relayClientMessages() error {
	for {
		messageType, raw, err := s.conn.ReadMessage()
		if err != nil {
			if s.ctx.Err() != nil || isClientGone(err) {
				s.logger.Info("client disconnected")
				return nil
			}
			return err
		}
		if messageType == websocket.BinaryMessage {
			// The protocol carries audio as base64 inside text frames.
			s.logger.Warn("ignoring binary frame from client", "bytes", len(raw))
			continue
		}

		msg, err := protocol.DecodeClientMessage(raw)
		if err != nil {
			s.logger.Warn("invalid client message", "error", err)
			continue
		}

		switch msg.Type {
		case protocol.ClientTypeAudio:
			if msg.Data == nil || *msg.Data == "" {
				s.logger.Warn("audio message with no data")
				continue
			}
			pcm, err := base64.StdEncoding.DecodeString(*msg.Data)
			if err != nil {
				s.logger.Warn("audio message with bad base64", "error", err)
				continue
			}
			if err := s.runner.SendMedia(pcm, "audio/pcm"); err != nil {
				s.logger.Warn("forward audio to agent failed", "error", err)
			}

		case protocol.ClientTypeImage:
			if msg.Data == nil || *msg.Data == "" {
				s.logger.Warn("image message with no data")
				continue
			}
			img, err := base64.StdEncoding.DecodeString(stripDataURLPrefix(*msg.Data))
			if err != nil {
				s.logger.Warn("image message with bad base64", "error", err)
				continue
			}
			if err := s.runner.SendMedia(img, "image/jpeg"); err != nil {
				s.logger.Warn("forward image to agent failed", "error", err)
			}

		case protocol.ClientTypeText:
			// Empty strings are allowed; only an absent data field is dropped.
			if msg.Data == nil {
				s.logger.Warn("text message with no data")
				continue
			}
			if err := s.runner.SendText(*msg.Data); err != nil {
				s.logger.Warn("forward text to agent failed", "error", err)
			}

		case protocol.ClientTypeEnd:
			s.logger.Info("client sent end signal")

		default:
			s.logger.Warn("unsupported client message type", "type", msg.Type)
		}
	}
}

// stripDataURLPrefix removes a leading "data:<mime>;base64," wrapper when
// the client sends a data URL instead of bare base64.
func stripDataURLPrefix(data string) string {
	if !strings.HasPrefix(data, "data:") {
		return data
	}
	if i := strings.Index(data, ","); i >= 0 {
		return data[i+1:]
	}
	return data
}

func isClientGone(err error) bool {
	if errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "use of closed network connection") ||
		strings.Contains(msg, "connection reset")
}
