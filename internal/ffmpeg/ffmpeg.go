// Package ffmpeg wraps ffprobe/ffmpeg subprocess invocations behind a
// narrow interface. Grounded on alxayo-rtmp-go's ShellHook.Execute:
// exec.CommandContext derives its deadline from the caller's timeout, the
// subprocess is killed as soon as that context ends, and a timeout always
// surfaces as a retryable error rather than panicking the worker
// goroutine.
package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/streemm-backend/internal/platform/apierr"
	"github.com/yungbote/streemm-backend/internal/platform/envutil"
	"github.com/yungbote/streemm-backend/internal/platform/logger"
)

// ProbeResult is a permissive decode of `ffprobe -print_format json`
// output: only the fields the pipeline needs are typed, the rest rides
// along in Raw so the caller can persist the original blob verbatim into
// videos.probe, per spec.md §9's "permissive decoders that preserve the
// original blob" guidance.
type ProbeResult struct {
	DurationSeconds float64
	FrameRate       float64
	Raw             json.RawMessage
}

type probeFormat struct {
	Duration string `json:"duration"`
}

type probeStream struct {
	CodecType     string `json:"codec_type"`
	AvgFrameRate  string `json:"avg_frame_rate"`
	RFrameRate    string `json:"r_frame_rate"`
}

type probeDoc struct {
	Format  probeFormat   `json:"format"`
	Streams []probeStream `json:"streams"`
}

// Runner executes ffprobe/ffmpeg subprocesses. Narrow interface over a
// concrete implementation, matching the teacher's adapter-interface
// convention (BucketService, Speech, etc.).
type Runner interface {
	Probe(ctx context.Context, inputPath string) (*ProbeResult, error)
	TranscodeHLS(ctx context.Context, inputPath, outDir string, r Rung, gop int, segmentSeconds int) error
	ExtractPoster(ctx context.Context, inputPath, outPath string, atSeconds float64) error
	ExtractAudioWAV(ctx context.Context, inputPath, outPath string) error
}

// Rung is one HLS rendition ladder rung, per spec.md §4.2.
type Rung struct {
	Label        string
	ScaleHeight  int
	CRF          int
	AudioBitrate string
}

var (
	Rung720p = Rung{Label: "720p", ScaleHeight: 720, CRF: 20, AudioBitrate: "128k"}
	Rung480p = Rung{Label: "480p", ScaleHeight: 480, CRF: 22, AudioBitrate: "96k"}
)

type runner struct {
	log          *logger.Logger
	ffmpegBin    string
	ffprobeBin   string
	probeTimeout time.Duration
	rungTimeout  map[string]time.Duration
	posterTime   time.Duration
}

func NewRunner(log *logger.Logger) Runner {
	return &runner{
		log:          log.With("service", "ffmpeg.Runner"),
		ffmpegBin:    envutil.GetEnv("FFMPEG_BIN", "ffmpeg"),
		ffprobeBin:   envutil.GetEnv("FFPROBE_BIN", "ffprobe"),
		probeTimeout: envutil.GetEnvAsDuration("PROBE_TIMEOUT_SECONDS", 30*time.Second),
		rungTimeout: map[string]time.Duration{
			Rung720p.Label: envutil.GetEnvAsDuration("TRANSCODE_720P_TIMEOUT_SECONDS", 1200*time.Second),
			Rung480p.Label: envutil.GetEnvAsDuration("TRANSCODE_480P_TIMEOUT_SECONDS", 900*time.Second),
		},
		posterTime: envutil.GetEnvAsDuration("POSTER_TIMEOUT_SECONDS", 30*time.Second),
	}
}

func run(ctx context.Context, timeout time.Duration, bin string, args ...string) ([]byte, error) {
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if execCtx.Err() != nil {
		return nil, apierr.Transient(fmt.Errorf("%s timed out after %s: %w", bin, timeout, execCtx.Err()))
	}
	if err != nil {
		return nil, apierr.Transient(fmt.Errorf("%s failed: %w: %s", bin, err, stderr.String()))
	}
	return stdout.Bytes(), nil
}

func (r *runner) Probe(ctx context.Context, inputPath string) (*ProbeResult, error) {
	out, err := run(ctx, r.probeTimeout, r.ffprobeBin,
		"-v", "error",
		"-print_format", "json",
		"-show_format", "-show_streams",
		inputPath,
	)
	if err != nil {
		return nil, err
	}

	var doc probeDoc
	if jsonErr := json.Unmarshal(out, &doc); jsonErr != nil {
		return nil, apierr.Terminal(fmt.Errorf("decode ffprobe output: %w", jsonErr))
	}

	duration, _ := strconv.ParseFloat(strings.TrimSpace(doc.Format.Duration), 64)

	fps := 30.0
	for _, s := range doc.Streams {
		if s.CodecType != "video" {
			continue
		}
		if parsed, ok := parseFrameRate(s.AvgFrameRate); ok {
			fps = parsed
		} else if parsed, ok := parseFrameRate(s.RFrameRate); ok {
			fps = parsed
		}
		break
	}

	return &ProbeResult{
		DurationSeconds: duration,
		FrameRate:       fps,
		Raw:             json.RawMessage(out),
	}, nil
}

// parseFrameRate parses an N/D fraction (ffprobe's avg_frame_rate /
// r_frame_rate shape), rejecting a zero or negative denominator.
func parseFrameRate(s string) (float64, bool) {
	parts := strings.SplitN(strings.TrimSpace(s), "/", 2)
	if len(parts) != 2 {
		return 0, false
	}
	n, err1 := strconv.ParseFloat(parts[0], 64)
	d, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || d <= 0 {
		return 0, false
	}
	return n / d, true
}

// DeriveGOP returns round(fps * 2.0) clamped to [24, 240], per spec.md §4.2.
func DeriveGOP(fps float64) int {
	gop := int(math.Round(fps * 2.0))
	if gop < 24 {
		gop = 24
	}
	if gop > 240 {
		gop = 240
	}
	return gop
}

func (r *runner) TranscodeHLS(ctx context.Context, inputPath, outDir string, rung Rung, gop int, segmentSeconds int) error {
	timeout, ok := r.rungTimeout[rung.Label]
	if !ok {
		timeout = 1200 * time.Second
	}
	playlist := outDir + "/index.m3u8"
	segPattern := outDir + "/seg_%03d.ts"
	_, err := run(ctx, timeout, r.ffmpegBin,
		"-y",
		"-i", inputPath,
		"-vf", fmt.Sprintf("scale=-2:%d", rung.ScaleHeight),
		"-c:v", "libx264",
		"-profile:v", "main",
		"-preset", "veryfast",
		"-crf", strconv.Itoa(rung.CRF),
		"-g", strconv.Itoa(gop),
		"-keyint_min", strconv.Itoa(gop),
		"-sc_threshold", "0",
		"-c:a", "aac",
		"-b:a", rung.AudioBitrate,
		"-hls_time", strconv.Itoa(segmentSeconds),
		"-hls_playlist_type", "vod",
		"-hls_segment_filename", segPattern,
		playlist,
	)
	return err
}

func (r *runner) ExtractPoster(ctx context.Context, inputPath, outPath string, atSeconds float64) error {
	if atSeconds < 0 {
		atSeconds = 0
	}
	_, err := run(ctx, r.posterTime, r.ffmpegBin,
		"-y",
		"-ss", strconv.FormatFloat(atSeconds, 'f', 3, 64),
		"-i", inputPath,
		"-frames:v", "1",
		"-q:v", "2",
		outPath,
	)
	return err
}

func (r *runner) ExtractAudioWAV(ctx context.Context, inputPath, outPath string) error {
	_, err := run(ctx, r.probeTimeout, r.ffmpegBin,
		"-y",
		"-i", inputPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		outPath,
	)
	return err
}
