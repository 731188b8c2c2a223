// Package worker implements the Job Worker: the video pipeline orchestrator
// spec.md §4.4 describes, dequeuing from the Queue & Lock Service and
// driving the Media Processor and Content Enricher through one ordered
// stage list per video. Grounded on internal/jobs/orchestrator's Stage
// shape (Name + Run) and internal/jobs/worker.go's ticker/panic-recovery
// claim loop, simplified from a persisted multi-tick DAG to a single
// in-process pass: each dequeue is one full attempt, and every step is
// individually idempotent (the Media Processor's stat-before-work checks),
// so a re-enqueued retry safely re-enters wherever the prior attempt
// stopped, without needing per-stage persisted state.
package worker

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	types "github.com/yungbote/streemm-backend/internal/domain"
	"github.com/yungbote/streemm-backend/internal/ffmpeg"
	"github.com/yungbote/streemm-backend/internal/media"
)

var pipelineTracer = otel.Tracer("streemm-backend/worker")

// pipelineContext carries state threaded between stages of one video's
// processing run.
type pipelineContext struct {
	ctx     context.Context
	videoID uuid.UUID
	workDir string
	rawPath string

	video *types.Video
	probe *ffmpeg.ProbeResult

	transcodedRungs []string
	posterUploaded  bool
	chunks          []media.Chunk
	transcriptLang  string
	captionsWritten bool

	previousStatus string
}

// stage is one named step of the video pipeline; Run reports a terminal or
// transient apierr-wrapped error on failure.
type stage struct {
	Name string
	Run  func(pc *pipelineContext) error
}

// runStages executes stages in order, stopping at the first failure. The
// failing stage's name is attached to the error for logging. Each stage
// runs inside its own span (sibling to the others under the root context,
// not nested) so a trace backend can show per-stage timing and which stage
// of one video's run failed.
func runStages(pc *pipelineContext, stages []stage) error {
	rootCtx := pc.ctx
	for _, s := range stages {
		spanCtx, span := pipelineTracer.Start(rootCtx, "worker.stage."+s.Name)
		pc.ctx = spanCtx
		err := s.Run(pc)
		pc.ctx = rootCtx
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
			return fmt.Errorf("stage %q: %w", s.Name, err)
		}
		span.End()
	}
	return nil
}
