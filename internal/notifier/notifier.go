// Package notifier implements the Notifier Worker spec.md §4.5 describes:
// a second consumer of the Queue & Lock Service, draining q:emails and
// sending a "your video is ready" email through SendGrid. Mirrors
// internal/worker's dequeue/lock/retry shape exactly, scoped down to a
// single best-effort send instead of a multi-stage pipeline.
package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	videorepo "github.com/yungbote/streemm-backend/internal/data/repos/video"
	types "github.com/yungbote/streemm-backend/internal/domain"
	"github.com/yungbote/streemm-backend/internal/platform/apierr"
	"github.com/yungbote/streemm-backend/internal/platform/dbctx"
	"github.com/yungbote/streemm-backend/internal/platform/envutil"
	"github.com/yungbote/streemm-backend/internal/platform/logger"
	"github.com/yungbote/streemm-backend/internal/platform/redisqueue"
	"github.com/yungbote/streemm-backend/internal/platform/sendgrid"
)

// Worker dequeues email jobs and sends the "video ready" notification.
type Worker struct {
	log           *logger.Logger
	queue         *redisqueue.Service
	videos        videorepo.VideoRepo
	mail          sendgrid.Client
	publicBaseURL string
}

func New(baseLog *logger.Logger, queue *redisqueue.Service, videos videorepo.VideoRepo, mail sendgrid.Client) *Worker {
	return &Worker{
		log:           baseLog.With("service", "notifier.Worker"),
		queue:         queue,
		videos:        videos,
		mail:          mail,
		publicBaseURL: envutil.GetEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
	}
}

// Start runs the dequeue loop until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		env, err := w.queue.Dequeue(ctx, redisqueue.KindEmail)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.log.Warn("dequeue failed", "error", err)
			continue
		}
		if env == nil {
			continue
		}

		func() {
			defer func() {
				if r := recover(); r != nil {
					w.log.Error("email job panic", "video_id", env.ID, "panic", r)
				}
			}()
			w.handle(ctx, *env)
		}()
	}
}

func (w *Worker) handle(ctx context.Context, env redisqueue.Envelope) {
	lock, ok, err := w.queue.TryAcquire(ctx, redisqueue.KindEmail, env.ID)
	if err != nil {
		w.log.Warn("lock acquire error", "video_id", env.ID, "error", err)
		return
	}
	if !ok {
		w.log.Info("lock_skip: email already being sent", "video_id", env.ID)
		return
	}
	defer func() {
		if relErr := lock.Release(ctx); relErr != nil {
			w.log.Warn("lock release failed", "video_id", env.ID, "error", relErr)
		}
	}()

	if err := w.process(ctx, env); err != nil {
		w.onFailure(ctx, env, err)
		return
	}
	if err := w.queue.ResetAttempts(ctx, redisqueue.KindEmail, env.ID); err != nil {
		w.log.Warn("reset attempts failed", "video_id", env.ID, "error", err)
	}
}

// onFailure mirrors internal/worker's retry/backoff/DLQ policy exactly,
// scoped to the email queue.
func (w *Worker) onFailure(ctx context.Context, env redisqueue.Envelope, err error) {
	attempts, aerr := w.queue.Attempts(ctx, redisqueue.KindEmail, env.ID)
	if aerr != nil {
		w.log.Warn("attempts increment failed", "video_id", env.ID, "error", aerr)
	}
	if apierr.IsTerminal(err) || w.queue.ExceedsBudget(attempts) {
		if dlqErr := w.queue.DeadLetter(ctx, redisqueue.KindEmail, env, err, attempts); dlqErr != nil {
			w.log.Error("dead-letter failed", "video_id", env.ID, "error", dlqErr)
		} else {
			w.log.Error("email job moved to dlq", "video_id", env.ID, "attempts", attempts, "cause", err)
		}
		return
	}

	delay := w.queue.BackoffDelay(attempts)
	w.log.Warn("email job failed, re-enqueueing with backoff", "video_id", env.ID, "attempts", attempts, "delay", delay, "error", err)
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		if err := w.queue.Enqueue(ctx, redisqueue.KindEmail, env); err != nil {
			w.log.Error("re-enqueue after backoff failed", "video_id", env.ID, "error", err)
		}
	}()
}

// process loads the video, checks the "ready and not yet notified"
// precondition, sends the email, and stamps notified_at. Re-entrant: a
// retry that finds the precondition already false (another attempt beat
// it to notified_at) logs it and returns nil, not a failure.
func (w *Worker) process(ctx context.Context, env redisqueue.Envelope) error {
	videoID, err := uuid.Parse(env.ID)
	if err != nil {
		return apierr.Terminal(fmt.Errorf("invalid video id %q: %w", env.ID, err))
	}

	dbc := dbctx.Context{Ctx: ctx}
	video, err := w.videos.GetByID(dbc, videoID)
	if err != nil {
		return apierr.Terminal(fmt.Errorf("load video: %w", err))
	}

	if video.Status != types.VideoStatusReady || video.NotifiedAt != nil {
		w.log.Info("notify precondition no longer holds, skipping", "video_id", env.ID, "status", video.Status)
		return nil
	}
	if video.User == nil || video.User.Email == "" {
		return apierr.Terminal(fmt.Errorf("video %s has no owner email", env.ID))
	}

	subject, text, html, err := render(video, w.publicBaseURL)
	if err != nil {
		return apierr.Terminal(fmt.Errorf("render email: %w", err))
	}

	_, err = w.mail.Send(ctx, sendgrid.SendEmailRequest{
		To:      []sendgrid.EmailAddress{{Email: video.User.Email}},
		Subject: subject,
		Text:    text,
		HTML:    html,
	})
	if err != nil {
		return apierr.Transient(fmt.Errorf("send email: %w", err))
	}

	marked, err := w.videos.MarkNotified(dbc, videoID)
	if err != nil {
		return apierr.Transient(fmt.Errorf("mark notified: %w", err))
	}
	if !marked {
		w.log.Info("notified_at already set by a concurrent attempt", "video_id", env.ID)
	}
	return nil
}
