package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"pitchforge-ai-api/internal/domain/entity"
	"pitchforge-ai-api/pkg/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type processor struct {
	ids []string
	err error
}

func (p *processor) ProcessJob(_ context.Context, id string) error {
	p.ids = append(p.ids, id)
	return p.err
}

func TestDeckJobMessageRoundTrip(t *testing.T) {
	ctx := logger.WithContext(context.Background(), logger.RequestIDKey, "req-7")
	job := entity.NewDeckJob("job-1", entity.DeckRequest{Idea: "dog walking"})

	msg, err := newDeckJobMessage(ctx, job)
	require.NoError(t, err)
	assert.Equal(t, MessageTypeDeckJob, msg.Type)
	assert.Equal(t, "req-7", msg.GetMetadata("request_id"))

	p := &processor{}
	require.NoError(t, DeckJobHandler(p)(ctx, msg))
	assert.Equal(t, []string{"job-1"}, p.ids)
}

func TestDeckJobHandlerRejectsEmptyJobID(t *testing.T) {
	msg, err := NewMessage("x", MessageTypeDeckJob, DeckJobMessage{})
	require.NoError(t, err)

	err = DeckJobHandler(&processor{})(context.Background(), msg)
	assert.ErrorIs(t, err, errMalformed)
}

func TestDeckJobHandlerPropagatesProcessorError(t *testing.T) {
	msg, err := NewMessage("x", MessageTypeDeckJob, DeckJobMessage{JobID: "job-2"})
	require.NoError(t, err)

	boom := errors.New("db down")
	err = DeckJobHandler(&processor{err: boom})(context.Background(), msg)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, errMalformed)
}

func TestDecodeMessage(t *testing.T) {
	_, err := decodeMessage(redis.XMessage{ID: "1-0", Values: map[string]interface{}{}})
	assert.ErrorIs(t, err, errMalformed)

	_, err = decodeMessage(redis.XMessage{ID: "1-0", Values: map[string]interface{}{"data": "{"}})
	assert.ErrorIs(t, err, errMalformed)

	msg, err := decodeMessage(redis.XMessage{ID: "1-0", Values: map[string]interface{}{
		"data": `{"id":"job-3","type":"deck_generate","payload":{"job_id":"job-3"}}`,
	}})
	require.NoError(t, err)
	assert.Equal(t, "job-3", msg.ID)
}

func TestCalculateBackoff(t *testing.T) {
	cfg := BackoffConfig{Initial: time.Second, Max: 5 * time.Second, Multiplier: 2}
	assert.Equal(t, time.Second, cfg.CalculateBackoff(0))
	assert.Equal(t, 2*time.Second, cfg.CalculateBackoff(1))
	assert.Equal(t, 4*time.Second, cfg.CalculateBackoff(2))
	assert.Equal(t, 5*time.Second, cfg.CalculateBackoff(3))
	assert.Equal(t, 5*time.Second, cfg.CalculateBackoff(10))
}

func TestStreamNames(t *testing.T) {
	assert.Equal(t, "dlq:stream:deck:jobs", StreamDeckJobs.DLQStream())
}
