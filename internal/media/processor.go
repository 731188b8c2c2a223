// Package media implements the Media Processor: the DAG of individually
// idempotent steps spec.md §4.2 and §4.4 describe (probe, HLS transcode at
// two rungs, poster, audio extraction, transcription, VTT, chunking). Each
// step checks the object store for its expected output before doing work,
// so re-entry after a crash or retry is always safe.
package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/streemm-backend/internal/ffmpeg"
	"github.com/yungbote/streemm-backend/internal/platform/apierr"
	"github.com/yungbote/streemm-backend/internal/platform/gcp"
	"github.com/yungbote/streemm-backend/internal/platform/logger"
)

const posterFraction = 0.10

// Rungs is the HLS rendition ladder spec.md §4.2 fixes at two rungs.
var Rungs = []ffmpeg.Rung{ffmpeg.Rung720p, ffmpeg.Rung480p}

const hlsSegmentSeconds = 4

// ProcessResult carries everything the Job Worker needs to persist after a
// successful (or partially best-effort) media run.
type ProcessResult struct {
	Probe            *ffmpeg.ProbeResult
	TranscodedRungs  []string // labels actually transcoded this run (empty entries were already present)
	PosterUploaded   bool
	TranscriptChunks []Chunk
	TranscriptLang   string
	CaptionsWritten  bool
}

// Processor runs the media DAG for one video against a local working
// directory that already holds the downloaded raw file.
type Processor struct {
	log    *logger.Logger
	ff     ffmpeg.Runner
	bucket gcp.BucketService
	speech gcp.Speech
}

func NewProcessor(log *logger.Logger, ff ffmpeg.Runner, bucket gcp.BucketService, speech gcp.Speech) *Processor {
	return &Processor{log: log.With("service", "media.Processor"), ff: ff, bucket: bucket, speech: speech}
}

// Probe runs ffprobe and returns duration/fps/raw blob; spec.md §4.4 step 5
// ("Probe → persist probe + duration").
func (p *Processor) Probe(ctx context.Context, rawLocalPath string) (*ffmpeg.ProbeResult, error) {
	return p.ff.Probe(ctx, rawLocalPath)
}

// TranscodeRungs runs, concurrently, whichever HLS rung transcodes are
// missing from the object store, uploading each completed rung's
// directory. Per spec.md §4.4 step 6 ("skip if playlist object exists,
// else transcode, upload directory") and SPEC_FULL.md's "rung transcodes
// run concurrently bounded by golang.org/x/sync/errgroup" — one goroutine
// per rung, bounded naturally by the fixed two-entry ladder.
func (p *Processor) TranscodeRungs(ctx context.Context, videoID, rawLocalPath, workDir string, gop int) ([]string, error) {
	var transcoded []string
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, rung := range Rungs {
		rung := rung
		g.Go(func() error {
			playlistKey := gcp.KeyForHLSPlaylist(videoID, rung.Label)
			if _, err := p.bucket.Stat(gctx, playlistKey); err == nil {
				return nil
			} else if err != gcp.ErrObjectNotFound {
				return apierr.Transient(fmt.Errorf("stat %s: %w", playlistKey, err))
			}

			outDir := filepath.Join(workDir, "hls", rung.Label)
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return apierr.Transient(err)
			}
			if err := p.ff.TranscodeHLS(gctx, rawLocalPath, outDir, rung, gop, hlsSegmentSeconds); err != nil {
				return err
			}
			if err := p.bucket.UploadDir(gctx, outDir, gcp.KeyForHLSDir(videoID, rung.Label)); err != nil {
				return apierr.Transient(fmt.Errorf("upload hls dir %s: %w", rung.Label, err))
			}
			mu.Lock()
			transcoded = append(transcoded, rung.Label)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return transcoded, err
	}
	return transcoded, nil
}

// Poster extracts and uploads the poster frame if absent, per spec.md §4.4
// step 7. atSeconds is 10% of duration (fallback 0), per §4.2.
func (p *Processor) Poster(ctx context.Context, videoID, rawLocalPath, workDir string, durationSeconds float64) (bool, error) {
	key := gcp.KeyForPoster(videoID)
	if _, err := p.bucket.Stat(ctx, key); err == nil {
		return false, nil
	} else if err != gcp.ErrObjectNotFound {
		return false, apierr.Transient(fmt.Errorf("stat %s: %w", key, err))
	}

	at := durationSeconds * posterFraction
	if durationSeconds <= 0 {
		at = 0
	}
	outPath := filepath.Join(workDir, "poster.jpg")
	if err := p.ff.ExtractPoster(ctx, rawLocalPath, outPath, at); err != nil {
		return false, err
	}
	f, err := os.Open(outPath)
	if err != nil {
		return false, apierr.Transient(err)
	}
	defer f.Close()
	if err := p.bucket.Upload(ctx, key, f); err != nil {
		return false, apierr.Transient(fmt.Errorf("upload poster: %w", err))
	}
	return true, nil
}

// Transcribe implements spec.md §4.4 step 8: if the caption object is
// absent and transcription is enabled, extract audio, transcribe, write
// VTT, and return chunks to index. If the caption object already exists,
// re-parse it and return its chunks instead (the recovery path), without
// re-running the subprocess/API work.
func (p *Processor) Transcribe(ctx context.Context, videoID, rawLocalPath, workDir, languageCode string) ([]Chunk, string, bool, error) {
	lang := languageCode
	if lang == "" {
		lang = "en"
	}
	key := gcp.KeyForCaptions(videoID, lang)

	if existing, err := p.bucket.Download(ctx, key); err == nil {
		defer existing.Close()
		buf := make([]byte, 0, 64*1024)
		tmp := make([]byte, 32*1024)
		for {
			n, rerr := existing.Read(tmp)
			if n > 0 {
				buf = append(buf, tmp[:n]...)
			}
			if rerr != nil {
				break
			}
		}
		segs := ParseVTT(string(buf))
		return BuildChunks(segs), lang, false, nil
	} else if err != gcp.ErrObjectNotFound {
		return nil, lang, false, apierr.Transient(fmt.Errorf("stat captions: %w", err))
	}

	if p.speech == nil {
		return nil, lang, false, nil
	}

	audioPath := filepath.Join(workDir, "audio.wav")
	if err := p.ff.ExtractAudioWAV(ctx, rawLocalPath, audioPath); err != nil {
		return nil, lang, false, err
	}
	audioBytes, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, lang, false, apierr.Transient(err)
	}

	segs, err := p.speech.TranscribeAudioBytes(ctx, audioBytes, lang)
	if err != nil {
		return nil, lang, false, err
	}
	if len(segs) == 0 {
		return nil, lang, false, nil
	}

	vtt := RenderVTT(segs)
	if err := p.bucket.Upload(ctx, key, strings.NewReader(vtt)); err != nil {
		return nil, lang, false, apierr.Transient(fmt.Errorf("upload captions: %w", err))
	}
	return BuildChunks(segs), lang, true, nil
}
