package deck

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pitchforge-ai-api/internal/domain/entity"
	"pitchforge-ai-api/internal/domain/repository"
	"pitchforge-ai-api/internal/infrastructure/memdeck"
	apperrors "pitchforge-ai-api/pkg/errors"
)

type memJobs struct {
	mu   sync.Mutex
	jobs map[string]entity.DeckJob
}

func newMemJobs() *memJobs { return &memJobs{jobs: map[string]entity.DeckJob{}} }

func (m *memJobs) Create(_ context.Context, job *entity.DeckJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = *job
	return nil
}

func (m *memJobs) GetByID(_ context.Context, id string) (*entity.DeckJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, nil
	}
	return &j, nil
}

func (m *memJobs) Update(_ context.Context, job *entity.DeckJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = *job
	return nil
}

func (m *memJobs) MarkRunning(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := m.jobs[id]
	j.Status = entity.JobStatusRunning
	m.jobs[id] = j
	return nil
}

func (m *memJobs) List(context.Context, *repository.DeckJobFilter, repository.Pagination) (*repository.PagedResult[*entity.DeckJob], error) {
	return nil, errors.New("not implemented")
}

type memArtifacts struct {
	items map[string]*entity.ExportArtifact
}

func (m *memArtifacts) Save(_ context.Context, key string, a *entity.ExportArtifact, _ time.Duration) error {
	m.items[key] = a
	return nil
}

func (m *memArtifacts) Load(_ context.Context, key string) (*entity.ExportArtifact, error) {
	return m.items[key], nil
}

type queue struct {
	ids []string
	err error
}

func (q *queue) PublishDeckJob(_ context.Context, job *entity.DeckJob) (string, error) {
	if q.err != nil {
		return "", q.err
	}
	q.ids = append(q.ids, job.ID)
	return "1-0", nil
}

func TestGenerateDeletesCopyWhenConfigured(t *testing.T) {
	store := memdeck.NewPitchStore()
	p := newPipeline(newSynth(t, &scriptedChain{replies: []string{dogWalkingReply(t)}}), store)
	svc := NewService(p, store, nil, nil, nil, ServiceConfig{DeleteCopyAfterExport: true})

	res, err := svc.Generate(context.Background(), dogWalking)
	require.NoError(t, err)
	require.NotNil(t, res.Artifact)

	_, exists := store.Presentation(res.Handle.DocumentID)
	assert.False(t, exists)
	_, masterExists := store.Presentation(memdeck.PitchMasterID)
	assert.True(t, masterExists)
}

func TestGenerateKeepsCopyOnFailure(t *testing.T) {
	store := memdeck.NewPitchStore()
	store.FailOn(memdeck.OpExport, errors.New("export quota exceeded"))
	p := newPipeline(newSynth(t, &scriptedChain{replies: []string{dogWalkingReply(t)}}), store)
	svc := NewService(p, store, nil, nil, nil, ServiceConfig{DeleteCopyAfterExport: true})

	res, err := svc.Generate(context.Background(), dogWalking)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrExport)
	require.NotNil(t, res.Handle)
	_, exists := store.Presentation(res.Handle.DocumentID)
	assert.True(t, exists)
	assert.NotContains(t, store.Calls(), memdeck.OpDelete)
}

func TestGenerateRejectsBlankIdea(t *testing.T) {
	svc := NewService(nil, nil, nil, nil, nil, ServiceConfig{})
	_, err := svc.Generate(context.Background(), entity.DeckRequest{Idea: "  "})
	assert.ErrorIs(t, err, apperrors.ErrInvalidParam)
}

func TestJobLifecycle(t *testing.T) {
	ctx := context.Background()
	store := memdeck.NewPitchStore()
	p := newPipeline(newSynth(t, &scriptedChain{replies: []string{dogWalkingReply(t)}}), store)
	jobs := newMemJobs()
	artifacts := &memArtifacts{items: map[string]*entity.ExportArtifact{}}
	q := &queue{}
	svc := NewService(p, store, jobs, artifacts, q, ServiceConfig{LLMProvider: "gemini"})

	job, err := svc.SubmitJob(ctx, dogWalking)
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusPending, job.Status)
	assert.Equal(t, []string{job.ID}, q.ids)

	_, _, err = svc.GetArtifact(ctx, job.ID)
	assert.ErrorIs(t, err, apperrors.ErrArtifactNotFound)

	require.NoError(t, svc.ProcessJob(ctx, job.ID))

	done, err := svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusCompleted, done.Status)
	assert.Equal(t, "PawPal", done.CompanyName)
	assert.Equal(t, 40, done.PlaceholdersResolved)
	assert.Equal(t, 1, done.ChartsRefreshed)
	assert.Equal(t, "gemini", done.LLMProvider)
	assert.NotEmpty(t, done.DocumentID)

	_, artifact, err := svc.GetArtifact(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "PawPal_Pitch_Deck.pptx", artifact.FileName)

	// 重复投递的消息不会再次执行
	calls := len(store.Calls())
	require.NoError(t, svc.ProcessJob(ctx, job.ID))
	assert.Len(t, store.Calls(), calls)
}

func TestProcessJobRecordsFailedStage(t *testing.T) {
	ctx := context.Background()
	store := memdeck.NewPitchStore()
	store.FailOn(memdeck.OpRefresh, errors.New("chart 42 not found"))
	p := newPipeline(newSynth(t, &scriptedChain{replies: []string{dogWalkingReply(t)}}), store)
	jobs := newMemJobs()
	svc := NewService(p, store, jobs, &memArtifacts{items: map[string]*entity.ExportArtifact{}}, &queue{}, ServiceConfig{})

	job, err := svc.SubmitJob(ctx, dogWalking)
	require.NoError(t, err)
	require.NoError(t, svc.ProcessJob(ctx, job.ID))

	failed, err := svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusFailed, failed.Status)
	assert.Equal(t, string(apperrors.StageChartSync), failed.FailedStage)
	assert.Equal(t, string(apperrors.CodeChartSyncFailed), failed.ErrorCode)
	assert.Empty(t, failed.ArtifactKey)
}

func TestSubmitJobEnqueueFailure(t *testing.T) {
	jobs := newMemJobs()
	svc := NewService(nil, nil, jobs, &memArtifacts{}, &queue{err: errors.New("redis down")}, ServiceConfig{})

	_, err := svc.SubmitJob(context.Background(), dogWalking)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.New(apperrors.CodeQueueError, "")))
	require.Len(t, jobs.jobs, 1)
	for _, j := range jobs.jobs {
		assert.Equal(t, entity.JobStatusFailed, j.Status)
	}
}

func TestGetJobNotFound(t *testing.T) {
	svc := NewService(nil, nil, newMemJobs(), nil, nil, ServiceConfig{})
	_, err := svc.GetJob(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrJobNotFound)
}
