package kafka

import (
	"Sodium/internal/pkg/logger"
	"context"
	"fmt"
	log "log/slog"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
)

// CommentAuditMessage 评论复审消息
type CommentAuditMessage struct {
	CommentID  uint64    `json:"commentId"`
	TraceID    string    `json:"traceId,omitempty"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// RemoderateFunc 复审回调
type RemoderateFunc func(ctx context.Context, commentID uint64) error

// CommentAuditProducer 把达到举报阈值的评论投递到复审队列
type CommentAuditProducer struct {
	producer sarama.SyncProducer
	topic    string
}

func NewCommentAuditProducer(producer sarama.SyncProducer, topic string) *CommentAuditProducer {
	return &CommentAuditProducer{producer: producer, topic: topic}
}

func (s *CommentAuditProducer) Enqueue(ctx context.Context, commentID uint64) error {
	payload, err := json.Marshal(&CommentAuditMessage{
		CommentID:  commentID,
		TraceID:    logger.TraceID(ctx),
		EnqueuedAt: time.Now(),
	})
	if err != nil {
		return err
	}
	partition, offset, err := s.producer.SendMessage(&sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(strconv.FormatUint(commentID, 10)),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue comment audit: %w", err)
	}
	log.InfoContext(ctx, "comment audit enqueued", "comment_id", commentID, "partition", partition, "offset", offset)
	return nil
}

func (s *CommentAuditProducer) Close() error {
	return s.producer.Close()
}

// CommentAuditHandler 复审队列消费者
type CommentAuditHandler struct {
	remoderate RemoderateFunc
}

func NewCommentAuditHandler(remoderate RemoderateFunc) *CommentAuditHandler {
	return &CommentAuditHandler{remoderate: remoderate}
}

func (s *CommentAuditHandler) Setup(sarama.ConsumerGroupSession) error {
	log.Info("comment audit consumer setup")
	return nil
}

func (s *CommentAuditHandler) Cleanup(sarama.ConsumerGroupSession) error {
	log.Info("comment audit consumer cleanup")
	return nil
}

func (s *CommentAuditHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	log.Info("comment audit consume claim", "topic", claim.Topic(), "partition", claim.Partition())
	return pullMessageBatch(session, claim, s.logic)
}

func (s *CommentAuditHandler) logic(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var audit CommentAuditMessage
	if err := json.Unmarshal(msg.Value, &audit); err != nil {
		log.Error("unmarshal comment audit message error", "err", err, "offset", msg.Offset)
		return nil
	}
	if audit.CommentID == 0 {
		return nil
	}

	if audit.TraceID != "" {
		ctx = context.WithValue(ctx, logger.TraceIDKey, audit.TraceID)
	} else {
		ctx = logger.NewTraceContext(ctx, "kafka-comment-audit")
	}
	return s.remoderate(ctx, audit.CommentID)
}
