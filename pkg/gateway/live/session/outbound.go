package session

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/vango-go/live-gateway/pkg/gateway/agent"
	"github.com/vango-go/live-gateway/pkg/gateway/live/protocol"
)

// relayAgentEvents forwards agent output to the client until the event
// stream is exhausted or the session is canceled. A turn-complete signal is
// sent only when the stream ended cleanly and the socket is still open; an
// errored or canceled stream must not look like a finished turn.
func (s *Session) relayAgentEvents() error {
	for {
		select {
		case <-s.ctx.Done():
			return nil
		case ev, ok := <-s.runner.Events():
			if !ok {
				if err := s.runner.Err(); err != nil {
					return err
				}
				s.buffer.ConsiderFlush(true)
				if err := s.send(protocol.ServerTypeTurnComplete, struct{}{}); err != nil {
					s.logger.Debug("turn_complete not delivered", "error", err)
				}
				return nil
			}
			if err := s.handleAgentEvent(ev); err != nil {
				return err
			}
		}
	}
}

func (s *Session) handleAgentEvent(ev agent.Event) error {
	switch ev := ev.(type) {
	case agent.InterruptedEvent:
		if dropped := s.buffer.Discard(); dropped > 0 {
			s.logger.Debug("discarded buffered audio on interruption", "bytes", dropped)
		}
		return s.send(protocol.ServerTypeInterrupted,
			protocol.InterruptedData{Message: "Response interrupted by user input"})

	case agent.InlineDataEvent:
		if strings.HasPrefix(ev.MIMEType, "audio/pcm") {
			s.buffer.Append(ev.Data)
			return nil
		}
		if strings.HasPrefix(ev.MIMEType, "image") {
			s.buffer.ConsiderFlush(true)
			encoded := base64.StdEncoding.EncodeToString(ev.Data)
			return s.send(protocol.ServerTypeImage,
				fmt.Sprintf("data:%s;base64,%s", ev.MIMEType, encoded))
		}
		s.logger.Warn("dropping inline data with unsupported mime type", "mime_type", ev.MIMEType)
		return nil

	case agent.ToolCallEvent:
		s.buffer.ConsiderFlush(true)
		return s.send(protocol.ServerTypeToolCall,
			protocol.ToolCallData{Name: ev.Name, Args: ev.Args})

	case agent.ToolResultEvent:
		s.buffer.ConsiderFlush(true)
		return s.send(protocol.ServerTypeToolResult, ev.Response)

	case agent.TextEvent:
		// Partial chunks stay internal; the client only sees complete text.
		if ev.Partial {
			return nil
		}
		s.buffer.ConsiderFlush(true)
		if s.cfg.UseTTS && s.synth != nil {
			if strings.TrimSpace(ev.Text) == "" {
				return nil
			}
			if err := s.speakText(ev.Text); err != nil {
				s.logger.Error("tts synthesis failed, falling back to text", "error", err)
				return s.send(protocol.ServerTypeText, ev.Text)
			}
			return nil
		}
		return s.send(protocol.ServerTypeText, ev.Text)

	default:
		s.logger.Warn("unhandled agent event", "event", fmt.Sprintf("%T", ev))
		return nil
	}
}

// speakText synthesizes one complete text chunk into the audio buffer.
func (s *Session) speakText(text string) error {
	return s.synth.Synthesize(s.ctx, text, func(audio []byte) error {
		s.buffer.Append(audio)
		return nil
	})
}

// transmitAudio is the frame buffer's sink: one flushed frame becomes one
// base64 audio envelope.
func (s *Session) transmitAudio(pcm []byte) error {
	return s.send(protocol.ServerTypeAudio, base64.StdEncoding.EncodeToString(pcm))
}

// flushTimeoutLoop wakes just after the flush timeout would expire and lets
// the buffer decide whether a timeout flush is due.
func (s *Session) flushTimeoutLoop() {
	const minSleep = 10 * time.Millisecond
	for {
		wait := s.cfg.FlushTimeout - s.buffer.SinceFlush()
		if wait < minSleep {
			wait = minSleep
		}
		select {
		case <-s.ctx.Done():
			return
		case <-time.After(wait):
		}
		s.buffer.ConsiderFlush(false)
	}
}
