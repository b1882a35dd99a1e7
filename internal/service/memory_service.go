package service

import (
	"Sodium/internal/api/dto"
	"Sodium/internal/model"
	"Sodium/internal/pkg/llm"
	"Sodium/internal/pkg/mongo"
	"Sodium/internal/pkg/util"
	"Sodium/internal/repository"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jinzhu/copier"
	"github.com/oklog/ulid/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryWindow 每段记忆最多保留的消息数
const MemoryWindow = 50

// memoryCASRetries 版本冲突时的最大重试次数
const memoryCASRetries = 5

type MemoryService interface {
	GetOrCreate(ctx context.Context, userID uint64, character *model.Character) (*mongo.Memory, error)
	Recent(memory *mongo.Memory, modelID string) ([]mongo.MemoryMessage, error)
	GetRecentMessages(ctx context.Context, userID, characterID uint64, modelID string) ([]mongo.MemoryMessage, error)
	AppendExchange(ctx context.Context, memoryID primitive.ObjectID, userMsg, characterMsg mongo.MemoryMessage) error
	ResetMemory(ctx context.Context, userID, characterID uint64) error
	GetHistory(ctx context.Context, userID, characterID uint64) ([]*dto.MessageDTO, error)
	DeleteByCharacter(ctx context.Context, characterID uint64) error
}

type MemoryServiceImpl struct {
	memoryRepo    mongo.MemoryRepo
	characterRepo repository.CharacterRepo
	now           func() time.Time
}

func NewMemoryService(memoryRepo mongo.MemoryRepo, characterRepo repository.CharacterRepo) MemoryService {
	return &MemoryServiceImpl{
		memoryRepo:    memoryRepo,
		characterRepo: characterRepo,
		now:           time.Now,
	}
}

// NewMessage 生成一条带 ULID 的消息
func NewMessage(sender, content string, at time.Time) mongo.MemoryMessage {
	return mongo.MemoryMessage{
		ID:        ulid.Make().String(),
		Sender:    sender,
		Content:   content,
		CreatedAt: at,
	}
}

// GetOrCreate 首次对话时创建以开场白为首条消息的记忆, 并发创建时以先写入者为准
func (s *MemoryServiceImpl) GetOrCreate(ctx context.Context, userID uint64, character *model.Character) (*mongo.Memory, error) {
	memory, err := s.memoryRepo.GetMemory(ctx, userID, character.ID)
	if err != nil {
		return nil, err
	}
	if memory != nil {
		return memory, nil
	}

	memory = &mongo.Memory{
		UserID:      userID,
		CharacterID: character.ID,
		Messages:    []mongo.MemoryMessage{NewMessage(mongo.SenderCharacter, character.Opening, s.now())},
	}
	err = s.memoryRepo.CreateMemory(ctx, memory)
	if err == nil {
		return memory, nil
	}
	if !errors.Is(err, mongo.ErrMemoryExists) {
		return nil, err
	}

	winner, err := s.memoryRepo.GetMemory(ctx, userID, character.ID)
	if err != nil {
		return nil, err
	}
	if winner == nil {
		return nil, fmt.Errorf("memory vanished after duplicate insert: %w", ErrInternal)
	}
	return winner, nil
}

// Recent 按模型的记忆预算截取最近的消息, 最新的在最后
func (s *MemoryServiceImpl) Recent(memory *mongo.Memory, modelID string) ([]mongo.MemoryMessage, error) {
	limit, err := llm.MemoryLimit(modelID)
	if err != nil {
		return nil, err
	}
	if memory == nil {
		return []mongo.MemoryMessage{}, nil
	}
	return util.Tail(memory.Messages, limit), nil
}

func (s *MemoryServiceImpl) GetRecentMessages(ctx context.Context, userID, characterID uint64, modelID string) ([]mongo.MemoryMessage, error) {
	if _, err := llm.MemoryLimit(modelID); err != nil {
		return nil, err
	}
	memory, err := s.memoryRepo.GetMemory(ctx, userID, characterID)
	if err != nil {
		return nil, err
	}
	return s.Recent(memory, modelID)
}

// AppendExchange 追加一问一答两条消息并保持窗口上限, 版本冲突时重读重试
func (s *MemoryServiceImpl) AppendExchange(ctx context.Context, memoryID primitive.ObjectID, userMsg, characterMsg mongo.MemoryMessage) error {
	return s.replace(ctx, memoryID, func(messages []mongo.MemoryMessage) []mongo.MemoryMessage {
		return util.Window(messages, MemoryWindow, userMsg, characterMsg)
	})
}

// ResetMemory 清空记忆, 只保留开场白
func (s *MemoryServiceImpl) ResetMemory(ctx context.Context, userID, characterID uint64) error {
	character, err := s.characterRepo.GetCharacterById(ctx, characterID)
	if err != nil {
		return err
	}
	if character == nil {
		return ErrCharacterNotFound
	}
	memory, err := s.memoryRepo.GetMemory(ctx, userID, characterID)
	if err != nil {
		return err
	}
	if memory == nil {
		return ErrMemoryNotFound
	}

	opening := NewMessage(mongo.SenderCharacter, character.Opening, s.now())
	return s.replace(ctx, memory.ID, func([]mongo.MemoryMessage) []mongo.MemoryMessage {
		return []mongo.MemoryMessage{opening}
	})
}

// GetHistory 返回完整窗口, 尚未对话时为空
func (s *MemoryServiceImpl) GetHistory(ctx context.Context, userID, characterID uint64) ([]*dto.MessageDTO, error) {
	memory, err := s.memoryRepo.GetMemory(ctx, userID, characterID)
	if err != nil {
		return nil, err
	}
	messages := make([]*dto.MessageDTO, 0)
	if memory == nil {
		return messages, nil
	}
	if err = copier.Copy(&messages, &memory.Messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *MemoryServiceImpl) DeleteByCharacter(ctx context.Context, characterID uint64) error {
	_, err := s.memoryRepo.DeleteByCharacter(ctx, characterID)
	return err
}

func (s *MemoryServiceImpl) replace(ctx context.Context, memoryID primitive.ObjectID, build func([]mongo.MemoryMessage) []mongo.MemoryMessage) error {
	for i := 0; i < memoryCASRetries; i++ {
		memory, err := s.memoryRepo.GetMemoryByID(ctx, memoryID)
		if err != nil {
			return err
		}
		if memory == nil {
			return ErrMemoryNotFound
		}
		ok, err := s.memoryRepo.ReplaceMessages(ctx, memory.ID, memory.Version, build(memory.Messages))
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return fmt.Errorf("memory %s: concurrent update retries exhausted: %w", memoryID.Hex(), ErrInternal)
}
