package notifier

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	videorepo "github.com/yungbote/streemm-backend/internal/data/repos/video"
	types "github.com/yungbote/streemm-backend/internal/domain"
	"github.com/yungbote/streemm-backend/internal/platform/dbctx"
	"github.com/yungbote/streemm-backend/internal/platform/logger"
	"github.com/yungbote/streemm-backend/internal/platform/redisqueue"
	"github.com/yungbote/streemm-backend/internal/platform/sendgrid"
)

type fakeVideoRepo struct {
	video       *types.Video
	notifyCalls int
	notifyOK    bool
}

func (f *fakeVideoRepo) Create(dbc dbctx.Context, v *types.Video) (*types.Video, error) { panic("unused") }
func (f *fakeVideoRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Video, error) {
	return f.video, nil
}
func (f *fakeVideoRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Video, error) {
	panic("unused")
}
func (f *fakeVideoRepo) ListByUserID(dbc dbctx.Context, userID uuid.UUID) ([]*types.Video, error) {
	panic("unused")
}
func (f *fakeVideoRepo) ListByStatus(dbc dbctx.Context, status string, limit int) ([]*types.Video, error) {
	panic("unused")
}
func (f *fakeVideoRepo) UpdateStatus(dbc dbctx.Context, id uuid.UUID, status, errMsg string) error {
	panic("unused")
}
func (f *fakeVideoRepo) UpdateProbe(dbc dbctx.Context, id uuid.UUID, probe datatypes.JSON, durationSeconds float64) error {
	panic("unused")
}
func (f *fakeVideoRepo) UpdateMetadata(dbc dbctx.Context, id uuid.UUID, contentType, language string) error {
	panic("unused")
}
func (f *fakeVideoRepo) MarkNotified(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	f.notifyCalls++
	return f.notifyOK, nil
}
func (f *fakeVideoRepo) SoftDeleteByID(dbc dbctx.Context, id uuid.UUID) error { panic("unused") }

var _ videorepo.VideoRepo = (*fakeVideoRepo)(nil)

type fakeMailer struct {
	sent []sendgrid.SendEmailRequest
	err  error
}

func (f *fakeMailer) Send(ctx context.Context, req sendgrid.SendEmailRequest) (*sendgrid.SendEmailResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, req)
	return &sendgrid.SendEmailResult{StatusCode: 202}, nil
}

func newTestWorker(t *testing.T, videos *fakeVideoRepo, mail *fakeMailer) *Worker {
	log, err := logger.New("test")
	require.NoError(t, err)
	return New(log, nil, videos, mail)
}

func TestProcessSendsAndMarksNotified(t *testing.T) {
	videoID := uuid.New()
	v := &types.Video{
		ID: videoID, Title: "My Clip", Status: types.VideoStatusReady,
		User: &types.User{Email: "owner@example.com"},
	}
	videos := &fakeVideoRepo{video: v, notifyOK: true}
	mail := &fakeMailer{}
	w := newTestWorker(t, videos, mail)

	err := w.process(context.Background(), fakeEnvelope(videoID))
	require.NoError(t, err)
	require.Len(t, mail.sent, 1)
	require.Equal(t, "owner@example.com", mail.sent[0].To[0].Email)
	require.Contains(t, mail.sent[0].Subject, "My Clip")
	require.Equal(t, 1, videos.notifyCalls)
}

func TestProcessSkipsWhenAlreadyNotified(t *testing.T) {
	videoID := uuid.New()
	now := time.Now()
	v := &types.Video{
		ID: videoID, Title: "My Clip", Status: types.VideoStatusReady,
		NotifiedAt: &now, User: &types.User{Email: "owner@example.com"},
	}
	videos := &fakeVideoRepo{video: v}
	mail := &fakeMailer{}
	w := newTestWorker(t, videos, mail)

	err := w.process(context.Background(), fakeEnvelope(videoID))
	require.NoError(t, err)
	require.Empty(t, mail.sent)
	require.Equal(t, 0, videos.notifyCalls)
}

func TestProcessSkipsWhenNotReady(t *testing.T) {
	videoID := uuid.New()
	v := &types.Video{ID: videoID, Title: "My Clip", Status: types.VideoStatusProcessing, User: &types.User{Email: "owner@example.com"}}
	videos := &fakeVideoRepo{video: v}
	mail := &fakeMailer{}
	w := newTestWorker(t, videos, mail)

	err := w.process(context.Background(), fakeEnvelope(videoID))
	require.NoError(t, err)
	require.Empty(t, mail.sent)
}

func fakeEnvelope(id uuid.UUID) redisqueue.Envelope {
	return redisqueue.Envelope{ID: id.String(), Reason: "ready"}
}
