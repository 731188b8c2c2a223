package gcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/yungbote/streemm-backend/internal/platform/apierr"
	"github.com/yungbote/streemm-backend/internal/platform/ctxutil"
	"github.com/yungbote/streemm-backend/internal/platform/logger"
)

// TranscriptSegment is the ordered {start, end, text, lang} shape spec.md
// §4.2 requires of the transcription step.
type TranscriptSegment struct {
	StartSeconds float64
	EndSeconds   float64
	Text         string
	Lang         string
}

// Speech transcribes mono 16kHz PCM WAV audio via GCP Speech-to-Text's
// LongRunningRecognize, matching the teacher's services/speech_provider.go
// client shape but trimmed to the one encoding/config path the Media
// Processor's audio-extraction step always produces, and returning
// spec.md's ordered-segment shape instead of the teacher's
// provider/diarization-aware SpeechResult.
type Speech interface {
	TranscribeAudioBytes(ctx context.Context, audio []byte, languageCode string) ([]TranscriptSegment, error)
	Close() error
}

type speechService struct {
	log        *logger.Logger
	client     *speech.Client
	maxRetries int
}

func NewSpeech(log *logger.Logger) (Speech, error) {
	slog := log.With("service", "gcp.Speech")

	ctx := context.Background()
	c, err := speech.NewClient(ctx, ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}

	return &speechService{log: slog, client: c, maxRetries: 4}, nil
}

func (s *speechService) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// TranscribeAudioBytes returns an empty, non-error slice for silent/empty
// audio, per spec.md §4.2 ("Empty/silent audio yields an empty list;
// downstream steps must tolerate this").
func (s *speechService) TranscribeAudioBytes(ctx context.Context, audio []byte, languageCode string) ([]TranscriptSegment, error) {
	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, 30*time.Minute)
	defer cancel()

	if len(audio) == 0 {
		return nil, nil
	}
	if languageCode == "" {
		languageCode = "en-US"
	}

	cfg := &speechpb.RecognitionConfig{
		LanguageCode:               languageCode,
		Encoding:                   speechpb.RecognitionConfig_LINEAR16,
		SampleRateHertz:            16000,
		AudioChannelCount:          1,
		EnableAutomaticPunctuation: true,
		EnableWordTimeOffsets:      true,
	}
	req := &speechpb.LongRunningRecognizeRequest{
		Config: cfg,
		Audio:  &speechpb.RecognitionAudio{AudioSource: &speechpb.RecognitionAudio_Content{Content: audio}},
	}

	resp, err := s.retryLR(ctx, func() (*speechpb.LongRunningRecognizeResponse, error) {
		op, err := s.client.LongRunningRecognize(ctx, req)
		if err != nil {
			return nil, err
		}
		return op.Wait(ctx)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, apierr.Transient(fmt.Errorf("speech transcribe: %w", err))
		}
		return nil, apierr.Transient(fmt.Errorf("speech longrunningrecognize: %w", err))
	}

	return parseSegments(resp, languageCode), nil
}

type speechWord struct {
	w string
	s float64
	e float64
}

// parseSegments groups word-level offsets into time-windowed segments, the
// same grouping strategy as the teacher's groupByTime, since spec.md's
// chunking step re-accumulates text anyway and only needs true segment
// boundaries to carry forward.
func parseSegments(resp *speechpb.LongRunningRecognizeResponse, lang string) []TranscriptSegment {
	if resp == nil || len(resp.Results) == 0 {
		return nil
	}

	var words []speechWord
	for _, r := range resp.Results {
		if r == nil || len(r.Alternatives) == 0 || r.Alternatives[0] == nil {
			continue
		}
		alt := r.Alternatives[0]
		if strings.TrimSpace(alt.Transcript) == "" {
			continue
		}
		for _, ww := range alt.Words {
			if ww == nil {
				continue
			}
			words = append(words, speechWord{w: ww.Word, s: durToSec(ww.StartTime), e: durToSec(ww.EndTime)})
		}
	}
	if len(words) == 0 {
		return nil
	}

	const windowSec = 10.0
	var segs []TranscriptSegment
	curStart, curEnd := words[0].s, words[0].e
	var buf strings.Builder

	flush := func() {
		txt := strings.TrimSpace(buf.String())
		if txt == "" {
			return
		}
		segs = append(segs, TranscriptSegment{StartSeconds: curStart, EndSeconds: curEnd, Text: txt, Lang: lang})
		buf.Reset()
	}

	for _, w := range words {
		if (w.s-curStart) >= windowSec && buf.Len() > 0 {
			flush()
			curStart = w.s
			curEnd = w.e
		}
		if buf.Len() > 0 {
			buf.WriteString(" ")
		}
		buf.WriteString(w.w)
		if w.e > curEnd {
			curEnd = w.e
		}
	}
	flush()
	return segs
}

func durToSec(d *durationpb.Duration) float64 {
	if d == nil {
		return 0
	}
	return float64(d.Seconds) + float64(d.Nanos)/1e9
}

func (s *speechService) retryLR(ctx context.Context, fn func() (*speechpb.LongRunningRecognizeResponse, error)) (*speechpb.LongRunningRecognizeResponse, error) {
	backoff := 750 * time.Millisecond
	var last error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		resp, err := fn()
		if err == nil {
			return resp, nil
		}
		last = err

		code := status.Code(err)
		if code != codes.Unavailable && code != codes.ResourceExhausted && code != codes.DeadlineExceeded {
			return nil, err
		}
		if attempt == s.maxRetries {
			break
		}
		time.Sleep(backoff)
		backoff *= 2
		if backoff > 10*time.Second {
			backoff = 10 * time.Second
		}
	}
	return nil, last
}
