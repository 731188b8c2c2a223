package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	videorepo "github.com/yungbote/streemm-backend/internal/data/repos/video"
	types "github.com/yungbote/streemm-backend/internal/domain"
	"github.com/yungbote/streemm-backend/internal/enrich"
	"github.com/yungbote/streemm-backend/internal/ffmpeg"
	"github.com/yungbote/streemm-backend/internal/media"
	"github.com/yungbote/streemm-backend/internal/platform/apierr"
	"github.com/yungbote/streemm-backend/internal/platform/dbctx"
	"github.com/yungbote/streemm-backend/internal/platform/gcp"
	"github.com/yungbote/streemm-backend/internal/platform/logger"
	"github.com/yungbote/streemm-backend/internal/platform/redisqueue"
	"github.com/yungbote/streemm-backend/internal/platform/searchindex"
)

// Worker dequeues video jobs and runs each through the stage list below.
// Mirrors the teacher's jobs.Worker (ticker claim loop, panic-recovery
// wrapper around a single job's run) but claims from the Queue & Lock
// Service instead of a DB job table.
type Worker struct {
	log       *logger.Logger
	queue     *redisqueue.Service
	videos    videorepo.VideoRepo
	assets    videorepo.VideoAssetRepo
	bucket    gcp.BucketService
	ff        ffmpeg.Runner
	processor *media.Processor
	enricher  *enrich.Enricher
	search    *searchindex.Client
}

func New(
	baseLog *logger.Logger,
	queue *redisqueue.Service,
	videos videorepo.VideoRepo,
	assets videorepo.VideoAssetRepo,
	bucket gcp.BucketService,
	ff ffmpeg.Runner,
	processor *media.Processor,
	enricher *enrich.Enricher,
	search *searchindex.Client,
) *Worker {
	return &Worker{
		log: baseLog.With("service", "worker.Worker"),
		queue: queue, videos: videos, assets: assets, bucket: bucket,
		ff: ff, processor: processor, enricher: enricher, search: search,
	}
}

// Start runs the dequeue loop until ctx is cancelled, per spec.md §4.1's
// "cancellation via a stop signal".
func (w *Worker) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		env, err := w.queue.Dequeue(ctx, redisqueue.KindVideo)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.log.Warn("dequeue failed", "error", err)
			continue
		}
		if env == nil {
			continue // blocking pop timed out; loop to re-check ctx
		}

		func() {
			defer func() {
				if r := recover(); r != nil {
					w.log.Error("video job panic", "video_id", env.ID, "panic", r)
				}
			}()
			w.handle(ctx, *env)
		}()
	}
}

func (w *Worker) handle(ctx context.Context, env redisqueue.Envelope) {
	lock, ok, err := w.queue.TryAcquire(ctx, redisqueue.KindVideo, env.ID)
	if err != nil {
		w.log.Warn("lock acquire error", "video_id", env.ID, "error", err)
		return
	}
	if !ok {
		w.log.Info("lock_skip: video already being processed", "video_id", env.ID)
		return
	}
	defer func() {
		if relErr := lock.Release(ctx); relErr != nil {
			w.log.Warn("lock release failed", "video_id", env.ID, "error", relErr)
		}
	}()

	hbCtx, cancelHB := context.WithCancel(ctx)
	defer cancelHB()
	go lock.Heartbeat(hbCtx)

	if err := w.process(ctx, env); err != nil {
		w.onFailure(ctx, env, err)
		return
	}
	if err := w.queue.ResetAttempts(ctx, redisqueue.KindVideo, env.ID); err != nil {
		w.log.Warn("reset attempts failed", "video_id", env.ID, "error", err)
	}
}

// onFailure applies spec.md §4.1's retry/backoff/DLQ policy: terminal
// errors go straight to the DLQ; transient errors re-enqueue after a
// backoff sleep unless the attempt budget is exhausted.
func (w *Worker) onFailure(ctx context.Context, env redisqueue.Envelope, err error) {
	attempts, aerr := w.queue.Attempts(ctx, redisqueue.KindVideo, env.ID)
	if aerr != nil {
		w.log.Warn("attempts increment failed", "video_id", env.ID, "error", aerr)
	}
	if apierr.IsTerminal(err) || w.queue.ExceedsBudget(attempts) {
		if dlqErr := w.queue.DeadLetter(ctx, redisqueue.KindVideo, env, err, attempts); dlqErr != nil {
			w.log.Error("dead-letter failed", "video_id", env.ID, "error", dlqErr)
		} else {
			w.log.Error("video job moved to dlq", "video_id", env.ID, "attempts", attempts, "cause", err)
		}
		_ = w.videos.UpdateStatus(dbctx.Context{Ctx: ctx}, mustParseUUID(env.ID), types.VideoStatusFailed, err.Error())
		return
	}

	delay := w.queue.BackoffDelay(attempts)
	w.log.Warn("video job failed, re-enqueueing with backoff", "video_id", env.ID, "attempts", attempts, "delay", delay, "error", err)
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		if err := w.queue.Enqueue(ctx, redisqueue.KindVideo, env); err != nil {
			w.log.Error("re-enqueue after backoff failed", "video_id", env.ID, "error", err)
		}
	}()
}

func mustParseUUID(s string) uuid.UUID {
	id, _ := uuid.Parse(s)
	return id
}

// process runs the full pipeline for one video, per spec.md §4.4 steps
// 3-12 (steps 1-2 — lock acquire and heartbeat spawn — already happened
// in handle).
func (w *Worker) process(ctx context.Context, env redisqueue.Envelope) error {
	videoID, err := uuid.Parse(env.ID)
	if err != nil {
		return apierr.Terminal(fmt.Errorf("invalid video id %q: %w", env.ID, err))
	}

	video, err := w.videos.GetByID(dbctx.Context{Ctx: ctx}, videoID)
	if err != nil {
		return apierr.Terminal(fmt.Errorf("load video: %w", err))
	}

	workDir, err := os.MkdirTemp("", "video-"+videoID.String())
	if err != nil {
		return apierr.Transient(fmt.Errorf("mkdir temp: %w", err))
	}
	defer os.RemoveAll(workDir)

	pc := &pipelineContext{
		ctx: ctx, videoID: videoID, workDir: workDir,
		video: video, previousStatus: video.Status,
	}

	return runStages(pc, []stage{
		{Name: "mark_processing", Run: w.stageMarkProcessing},
		{Name: "download_raw", Run: w.stageDownloadRaw},
		{Name: "probe", Run: w.stageProbe},
		{Name: "transcode_rungs", Run: w.stageTranscodeRungs},
		{Name: "poster", Run: w.stagePoster},
		{Name: "transcribe", Run: w.stageTranscribe},
		{Name: "enrich", Run: w.stageEnrich},
		{Name: "upsert_assets_and_finalize", Run: w.stageFinalize},
	})
}

func (w *Worker) stageMarkProcessing(pc *pipelineContext) error {
	if pc.video.Status != types.VideoStatusUploaded {
		return nil
	}
	if err := w.videos.UpdateStatus(dbctx.Context{Ctx: pc.ctx}, pc.videoID, types.VideoStatusProcessing, ""); err != nil {
		return apierr.Transient(fmt.Errorf("set processing: %w", err))
	}
	pc.video.Status = types.VideoStatusProcessing
	return nil
}

func (w *Worker) stageDownloadRaw(pc *pipelineContext) error {
	rc, err := w.bucket.Download(pc.ctx, pc.video.StorageKeyRaw)
	if err != nil {
		return apierr.Transient(fmt.Errorf("download raw: %w", err))
	}
	defer rc.Close()

	path := filepath.Join(pc.workDir, "raw"+filepath.Ext(pc.video.StorageKeyRaw))
	f, err := os.Create(path)
	if err != nil {
		return apierr.Transient(err)
	}
	defer f.Close()

	buf := make([]byte, 256*1024)
	for {
		n, rerr := rc.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				return apierr.Transient(werr)
			}
		}
		if rerr != nil {
			break
		}
	}
	pc.rawPath = path
	return nil
}

func (w *Worker) stageProbe(pc *pipelineContext) error {
	probe, err := w.processor.Probe(pc.ctx, pc.rawPath)
	if err != nil {
		return err
	}
	pc.probe = probe
	if err := w.videos.UpdateProbe(dbctx.Context{Ctx: pc.ctx}, pc.videoID, datatypes.JSON(probe.Raw), probe.DurationSeconds); err != nil {
		return apierr.Transient(fmt.Errorf("persist probe: %w", err))
	}
	pc.video.DurationSeconds = probe.DurationSeconds

	if w.search != nil {
		if ierr := w.search.IndexVideo(pc.ctx, searchindex.VideoDoc{
			ID: pc.videoID.String(), Title: pc.video.Title, Description: pc.video.Description,
			ContentType: pc.video.ContentType, Language: pc.video.Language, UserID: pc.video.UserID.String(),
			Status: pc.video.Status, DurationSeconds: probe.DurationSeconds,
			CreatedAt: pc.video.CreatedAt, UpdatedAt: pc.video.UpdatedAt,
		}); ierr != nil {
			w.log.Warn("best-effort metadata index failed (continuing)", "video_id", pc.videoID, "error", ierr)
		}
	}
	return nil
}

func (w *Worker) stageTranscodeRungs(pc *pipelineContext) error {
	gop := ffmpeg.DeriveGOP(pc.probe.FrameRate)
	rungs, err := w.processor.TranscodeRungs(pc.ctx, pc.videoID.String(), pc.rawPath, pc.workDir, gop)
	if err != nil {
		return err
	}
	pc.transcodedRungs = rungs
	return nil
}

func (w *Worker) stagePoster(pc *pipelineContext) error {
	uploaded, err := w.processor.Poster(pc.ctx, pc.videoID.String(), pc.rawPath, pc.workDir, pc.probe.DurationSeconds)
	if err != nil {
		return err
	}
	pc.posterUploaded = uploaded
	return nil
}

func (w *Worker) stageTranscribe(pc *pipelineContext) error {
	lang := pc.video.Language
	chunks, resolvedLang, written, err := w.processor.Transcribe(pc.ctx, pc.videoID.String(), pc.rawPath, pc.workDir, lang)
	if err != nil {
		return err
	}
	pc.chunks = chunks
	pc.transcriptLang = resolvedLang
	pc.captionsWritten = written

	if len(chunks) > 0 && w.search != nil {
		docs := make([]searchindex.TranscriptChunkDoc, len(chunks))
		nowMS := time.Now().UnixMilli()
		for i, c := range chunks {
			docs[i] = searchindex.TranscriptChunkDoc{
				DocID:        fmt.Sprintf("%s_%d_%d", pc.videoID.String(), i, nowMS),
				VideoID:      pc.videoID.String(),
				Text:         c.Text,
				StartSeconds: c.StartSeconds,
				EndSeconds:   c.EndSeconds,
				Lang:         resolvedLang,
				CreatedAt:    time.Now(),
			}
		}
		if err := w.search.DeleteChunksForVideo(pc.ctx, pc.videoID.String()); err != nil {
			w.log.Warn("delete stale chunks failed (continuing)", "video_id", pc.videoID, "error", err)
		}
		if err := w.search.BulkIndexChunks(pc.ctx, docs); err != nil {
			w.log.Warn("bulk index chunks failed (continuing)", "video_id", pc.videoID, "error", err)
		}
	}
	return nil
}

func (w *Worker) stageEnrich(pc *pipelineContext) error {
	if w.enricher == nil {
		return nil
	}
	if err := w.enricher.Enrich(pc.ctx, pc.video, pc.chunks); err != nil {
		// spec.md §4.4 step 9: persistence errors here are logged, not fatal.
		w.log.Warn("content enrichment failed (continuing)", "video_id", pc.videoID, "error", err)
	}
	return nil
}

func (w *Worker) stageFinalize(pc *pipelineContext) error {
	requiredPresent := 0
	for _, rung := range media.Rungs {
		key := gcp.KeyForHLSPlaylist(pc.videoID.String(), rung.Label)
		if _, err := w.bucket.Stat(pc.ctx, key); err == nil {
			requiredPresent++
			if _, err := w.assets.Upsert(dbctx.Context{Ctx: pc.ctx}, &types.VideoAsset{
				VideoID: pc.videoID, Kind: types.VideoAssetKindHLS, Label: rung.Label, StorageKey: key,
			}); err != nil {
				return apierr.Transient(fmt.Errorf("upsert hls asset %s: %w", rung.Label, err))
			}
		} else if err != gcp.ErrObjectNotFound {
			return apierr.Transient(fmt.Errorf("stat hls asset %s: %w", rung.Label, err))
		}
	}

	posterKey := gcp.KeyForPoster(pc.videoID.String())
	if _, err := w.bucket.Stat(pc.ctx, posterKey); err == nil {
		requiredPresent++
		if _, err := w.assets.Upsert(dbctx.Context{Ctx: pc.ctx}, &types.VideoAsset{
			VideoID: pc.videoID, Kind: types.VideoAssetKindThumbnail, Label: types.VideoAssetLabelPoster, StorageKey: posterKey,
		}); err != nil {
			return apierr.Transient(fmt.Errorf("upsert poster asset: %w", err))
		}
	} else if err != gcp.ErrObjectNotFound {
		return apierr.Transient(fmt.Errorf("stat poster: %w", err))
	}

	if requiredPresent < len(media.Rungs)+1 {
		return nil // not yet complete; next attempt picks up where this left off
	}

	if pc.previousStatus != types.VideoStatusReady {
		if err := w.videos.UpdateStatus(dbctx.Context{Ctx: pc.ctx}, pc.videoID, types.VideoStatusReady, ""); err != nil {
			return apierr.Transient(fmt.Errorf("set ready: %w", err))
		}
		if pc.video.NotifiedAt == nil {
			if err := w.queue.Enqueue(pc.ctx, redisqueue.KindEmail, redisqueue.Envelope{ID: pc.videoID.String(), Reason: "ready"}); err != nil {
				return apierr.Transient(fmt.Errorf("enqueue notify: %w", err))
			}
		}
	}
	return nil
}
