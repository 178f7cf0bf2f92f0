// Package tts synthesizes agent text replies into PCM audio when the live
// model runs in text modality instead of producing native audio.
package tts

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"google.golang.org/api/option"
)

// Synthesizer converts one text chunk into streamed audio. Implementations
// call emit once per audio chunk, in order; a non-nil emit error aborts the
// synthesis and is returned unwrapped.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, emit func(audio []byte) error) error
	Close() error
}

// VoiceName builds the Chirp3 HD voice identifier for a language and
// voice pairing, e.g. "en-US" + "Aoede" -> "en-US-Chirp3-HD-Aoede".
func VoiceName(languageCode, voice string) string {
	return fmt.Sprintf("%s-Chirp3-HD-%s", languageCode, voice)
}

// GoogleSynthesizer streams text through the Cloud Text-to-Speech
// bidirectional synthesis API.
type GoogleSynthesizer struct {
	client       *texttospeech.Client
	voiceName    string
	languageCode string
	logger       *slog.Logger
}

type GoogleConfig struct {
	// Location selects a regional endpoint; empty means the global one.
	Location     string
	LanguageCode string
	Voice        string
	Logger       *slog.Logger
}

func NewGoogleSynthesizer(ctx context.Context, cfg GoogleConfig) (*GoogleSynthesizer, error) {
	if strings.TrimSpace(cfg.LanguageCode) == "" || strings.TrimSpace(cfg.Voice) == "" {
		return nil, fmt.Errorf("tts language and voice are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	var opts []option.ClientOption
	if cfg.Location != "" && cfg.Location != "global" {
		opts = append(opts, option.WithEndpoint(fmt.Sprintf("%s-texttospeech.googleapis.com:443", cfg.Location)))
	}
	client, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create tts client: %w", err)
	}
	return &GoogleSynthesizer{
		client:       client,
		voiceName:    VoiceName(cfg.LanguageCode, cfg.Voice),
		languageCode: cfg.LanguageCode,
		logger:       cfg.Logger,
	}, nil
}

// Synthesize opens a fresh streaming session per chunk. The live agent
// produces one complete sentence-or-more chunk at a time, so per-chunk
// sessions keep the stream state simple at the cost of a little latency.
func (g *GoogleSynthesizer) Synthesize(ctx context.Context, text string, emit func(audio []byte) error) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	stream, err := g.client.StreamingSynthesize(ctx)
	if err != nil {
		return fmt.Errorf("open synthesis stream: %w", err)
	}

	err = stream.Send(&texttospeechpb.StreamingSynthesizeRequest{
		StreamingRequest: &texttospeechpb.StreamingSynthesizeRequest_StreamingConfig{
			StreamingConfig: &texttospeechpb.StreamingSynthesizeConfig{
				Voice: &texttospeechpb.VoiceSelectionParams{
					Name:         g.voiceName,
					LanguageCode: g.languageCode,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("send synthesis config: %w", err)
	}

	err = stream.Send(&texttospeechpb.StreamingSynthesizeRequest{
		StreamingRequest: &texttospeechpb.StreamingSynthesizeRequest_Input{
			Input: &texttospeechpb.StreamingSynthesisInput{
				InputSource: &texttospeechpb.StreamingSynthesisInput_Text{Text: text},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("send synthesis input: %w", err)
	}
	if err := stream.CloseSend(); err != nil {
		return fmt.Errorf("close synthesis input: %w", err)
	}

	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("receive synthesized audio: %w", err)
		}
		audio := resp.GetAudioContent()
		if len(audio) == 0 {
			continue
		}
		if err := emit(audio); err != nil {
			return err
		}
	}
}

func (g *GoogleSynthesizer) Close() error {
	return g.client.Close()
}
