package kafka

import (
	"Sodium/internal/api/config"
	"context"
	log "log/slog"

	"github.com/IBM/sarama"
)

// NewSyncProducer 创建同步生产者
func NewSyncProducer(cfg config.KafkaConfig) (sarama.SyncProducer, error) {
	return sarama.NewSyncProducer(cfg.Brokers, newSaramaConfig(cfg))
}

// ConsumerManager 管理 Kafka 消费者
type ConsumerManager struct {
	topic         string
	auditConsumer sarama.ConsumerGroup
	auditHandler  sarama.ConsumerGroupHandler
}

func NewConsumerManager(cfg config.KafkaConfig, remoderate RemoderateFunc) (*ConsumerManager, error) {
	saramaCfg := newSaramaConfig(cfg)
	saramaCfg.Consumer.Offsets.AutoCommit.Enable = false

	auditConsumer, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.CommentAudit.GroupID, saramaCfg)
	if err != nil {
		return nil, err
	}
	return &ConsumerManager{
		topic:         cfg.CommentAudit.Topic,
		auditConsumer: auditConsumer,
		auditHandler:  NewCommentAuditHandler(remoderate),
	}, nil
}

// Start 阻塞直到 ctx 结束
func (m *ConsumerManager) Start(ctx context.Context) error {
	go func() {
		for err := range m.auditConsumer.Errors() {
			log.Error("comment audit consumer error", "err", err)
		}
	}()

	go func() {
		log.Info("Comment audit consumer started", "topic", m.topic)
		for {
			if err := m.auditConsumer.Consume(ctx, []string{m.topic}, m.auditHandler); err != nil {
				log.Error("Error from consumer", "err", err)
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	<-ctx.Done()
	log.Info("Kafka Manager shutting down...")
	if err := m.auditConsumer.Close(); err != nil {
		log.Error("Failed to close comment audit consumer", "err", err)
	}
	return nil
}
