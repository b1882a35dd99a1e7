package kafka

import (
	"Sodium/internal/pkg/logger"
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueue_PublishesCommentID(t *testing.T) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	mp := mocks.NewSyncProducer(t, cfg)
	mp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var msg CommentAuditMessage
		if err := json.Unmarshal(val, &msg); err != nil {
			return err
		}
		if msg.CommentID != 42 || msg.TraceID != "req-1" {
			return errors.New("unexpected payload")
		}
		return nil
	})

	p := NewCommentAuditProducer(mp, "comment-audit")
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, "req-1")
	require.NoError(t, p.Enqueue(ctx, 42))
	require.NoError(t, p.Close())
}

func TestHandlerLogic_CallsRemoderate(t *testing.T) {
	var got []uint64
	var trace string
	h := NewCommentAuditHandler(func(ctx context.Context, id uint64) error {
		got = append(got, id)
		trace = logger.TraceID(ctx)
		return nil
	})

	value, err := json.Marshal(CommentAuditMessage{CommentID: 7, TraceID: "req-9"})
	require.NoError(t, err)
	require.NoError(t, h.logic(context.Background(), &sarama.ConsumerMessage{Value: value}))
	assert.Equal(t, []uint64{7}, got)
	assert.Equal(t, "req-9", trace)
}

func TestHandlerLogic_SkipsMalformed(t *testing.T) {
	called := false
	h := NewCommentAuditHandler(func(context.Context, uint64) error {
		called = true
		return nil
	})

	require.NoError(t, h.logic(context.Background(), &sarama.ConsumerMessage{Value: []byte("{oops")}))
	require.NoError(t, h.logic(context.Background(), &sarama.ConsumerMessage{Value: []byte(`{"commentId":0}`)}))
	assert.False(t, called)
}

func TestRetryWithBackoff_GivesUp(t *testing.T) {
	calls := 0
	retryWithBackoff(context.Background(), &sarama.ConsumerMessage{}, func(context.Context, *sarama.ConsumerMessage) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	assert.Equal(t, 3, calls)
}
