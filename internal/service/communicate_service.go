package service

import (
	"Sodium/internal/api/dto"
	"Sodium/internal/model"
	"Sodium/internal/pkg/cron"
	"Sodium/internal/pkg/llm"
	"Sodium/internal/pkg/mongo"
	"Sodium/internal/repository"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jinzhu/copier"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxMessageLength = 2000

// PendingExchange 已生成但尚未写入记忆的一问一答, 游客对话为 nil
type PendingExchange struct {
	MemoryID         primitive.ObjectID
	UserMessage      mongo.MemoryMessage
	CharacterMessage mongo.MemoryMessage
}

type CommunicateService interface {
	Communicate(ctx context.Context, userID, characterID uint64, in *dto.CommunicateDTO) (*dto.CommunicateResultDTO, *PendingExchange, error)
	PersistExchange(ctx context.Context, pending *PendingExchange) error
}

type CommunicateServiceImpl struct {
	characterRepo repository.CharacterRepo
	relationRepo  repository.RelationRepo
	uow           repository.UnitOfWork
	memories      MemoryService
	suspender     SuspendService
	notifier      NotificationService
	scheduler     cron.Scheduler
	moderator     llm.Moderator
	composer      *llm.Composer
	dispatcher    *llm.Dispatcher
	moderateChat  bool
	reminderAfter time.Duration
	now           func() time.Time
}

func NewCommunicateService(
	characterRepo repository.CharacterRepo,
	relationRepo repository.RelationRepo,
	uow repository.UnitOfWork,
	memories MemoryService,
	suspender SuspendService,
	notifier NotificationService,
	scheduler cron.Scheduler,
	moderator llm.Moderator,
	composer *llm.Composer,
	dispatcher *llm.Dispatcher,
	moderateChat bool,
	reminderAfter time.Duration,
) CommunicateService {
	return &CommunicateServiceImpl{
		characterRepo: characterRepo,
		relationRepo:  relationRepo,
		uow:           uow,
		memories:      memories,
		suspender:     suspender,
		notifier:      notifier,
		scheduler:     scheduler,
		moderator:     moderator,
		composer:      composer,
		dispatcher:    dispatcher,
		moderateChat:  moderateChat,
		reminderAfter: reminderAfter,
		now:           time.Now,
	}
}

// Communicate 校验 -> 模型权限 -> 审核 -> 读取记忆 -> 生成回复 -> 首次对话登记, userID 为 0 表示游客
func (s *CommunicateServiceImpl) Communicate(ctx context.Context, userID, characterID uint64, in *dto.CommunicateDTO) (*dto.CommunicateResultDTO, *PendingExchange, error) {
	message := strings.TrimSpace(in.Message)
	if length := utf8.RuneCountInString(message); length == 0 || length > maxMessageLength {
		return nil, nil, ErrMessageInvalid
	}
	style := in.ResponseStyle
	if style == "" {
		style = llm.StyleRoleplay
	}
	if !llm.IsValidStyle(style) {
		return nil, nil, ErrResponseStyle
	}

	var user *model.User
	viewer := Viewer{}
	if userID != 0 {
		var err error
		user, err = s.suspender.CheckStatus(ctx, userID)
		if err != nil {
			return nil, nil, err
		}
		viewer = Viewer{UserID: user.ID, Role: user.Role}
	}

	character, err := s.characterRepo.GetCharacterById(ctx, characterID)
	if err != nil {
		return nil, nil, err
	}
	if character == nil || !isVisible(character, viewer) {
		return nil, nil, ErrCharacterNotFound
	}

	modelID := in.Model
	if modelID == "" {
		modelID = character.Model
	}
	if !llm.IsSupported(modelID) {
		return nil, nil, ErrModelNotSupported
	}
	if !llm.CanUseModel(user, modelID) {
		return nil, nil, ErrPaidModel
	}
	if user != nil {
		if err = s.suspender.EnsureActive(user); err != nil {
			return nil, nil, err
		}
	}

	if s.moderateChat {
		safe, err := s.moderator.ModerateText(ctx, message)
		if err != nil {
			log.WarnContext(ctx, "chat moderation failed, treating as unsafe", "err", err)
			return nil, nil, ErrMessageUnsafe
		}
		if !safe {
			return nil, nil, ErrMessageUnsafe
		}
	}

	var memory *mongo.Memory
	var recent []mongo.MemoryMessage
	if user != nil {
		memory, err = s.memories.GetOrCreate(ctx, user.ID, character)
		if err != nil {
			return nil, nil, err
		}
		recent, err = s.memories.Recent(memory, modelID)
		if err != nil {
			return nil, nil, err
		}
	}

	persona := llm.Persona{}
	if err = copier.Copy(&persona, character); err != nil {
		return nil, nil, err
	}
	history := make([]llm.HistoryMessage, 0, len(recent))
	for _, m := range recent {
		history = append(history, llm.HistoryMessage{Sender: m.Sender, Content: m.Content})
	}
	prompt, err := s.composer.Compose(persona, style, history, message)
	if err != nil {
		return nil, nil, err
	}

	askedAt := s.now()
	reply, err := s.dispatcher.Dispatch(ctx, prompt, modelID)
	if err != nil {
		if errors.Is(err, llm.ErrQuotaExceeded) {
			return nil, nil, ErrQuotaExceeded
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}

	result := &dto.CommunicateResultDTO{Reply: reply, Model: modelID}
	if user == nil {
		return result, nil, nil
	}

	if err = s.registerFirstContact(ctx, user, character); err != nil {
		return nil, nil, err
	}

	return result, &PendingExchange{
		MemoryID:         memory.ID,
		UserMessage:      NewMessage(mongo.SenderUser, message, askedAt),
		CharacterMessage: NewMessage(mongo.SenderCharacter, reply, s.now()),
	}, nil
}

// PersistExchange 在响应返回后写入记忆, 调用方应传入与请求解耦的 context
func (s *CommunicateServiceImpl) PersistExchange(ctx context.Context, pending *PendingExchange) error {
	if pending == nil {
		return nil
	}
	return s.memories.AppendExchange(ctx, pending.MemoryID, pending.UserMessage, pending.CharacterMessage)
}

// registerFirstContact 首次对话时关系行与 communicator_count 同事务写入, 提交后通知创作者并预约提醒邮件
func (s *CommunicateServiceImpl) registerFirstContact(ctx context.Context, user *model.User, character *model.Character) error {
	communicated, err := s.relationRepo.HasCommunicated(ctx, user.ID, character.ID)
	if err != nil {
		return err
	}
	if communicated {
		return nil
	}

	added := false
	err = s.uow.Transaction(ctx, func(repos *repository.Repos) error {
		var err error
		added, err = repos.Relations.AddCommunicator(ctx, user.ID, character.ID)
		if err != nil || !added {
			return err
		}
		return repos.Characters.IncrCommunicatorCount(ctx, character.ID, 1)
	})
	if err != nil {
		return fmt.Errorf("%w: first contact: %v", ErrInternal, err)
	}
	if !added {
		return nil
	}
	log.InfoContext(ctx, "first contact registered", "user_id", user.ID, "character_id", character.ID)

	if character.CreatorID != user.ID {
		notifyQuietly(ctx, s.notifier, &mongo.Notification{
			ReceiverID:  character.CreatorID,
			EmitterID:   user.ID,
			CharacterID: character.ID,
			Type:        mongo.NotifyCommunicate,
			Message:     fmt.Sprintf("%s started a conversation with %s", user.Username, character.Name),
		})
	}

	if s.scheduler != nil && s.reminderAfter > 0 {
		err = s.scheduler.Schedule(ctx, s.now().Add(s.reminderAfter), cron.JobSendEmail, &cron.EmailPayload{
			To:      user.Email,
			Subject: fmt.Sprintf("%s misses you", character.Name),
			Text:    fmt.Sprintf("Hi %s, %s is waiting to continue your conversation.", user.Username, character.Name),
		})
		if err != nil {
			log.ErrorContext(ctx, "failed to schedule reminder email", "user_id", user.ID, "err", err)
		}
	}
	return nil
}
