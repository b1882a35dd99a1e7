package service

import (
	"Sodium/internal/api/dto"
	"Sodium/internal/model"
	"Sodium/internal/pkg/llm"
	"Sodium/internal/pkg/mongo"
	"Sodium/internal/pkg/util"
	"Sodium/internal/repository"
	"context"
	"fmt"
	log "log/slog"

	"github.com/jinzhu/copier"
)

// commentRemovalMerit 评论被审核删除时作者扣除的信誉分
const commentRemovalMerit = -5

// CommentAuditQueue 复审队列, 为 nil 时在进程内异步复审
type CommentAuditQueue interface {
	Enqueue(ctx context.Context, commentID uint64) error
}

type CommentService interface {
	CreateComment(ctx context.Context, userID, characterID uint64, in *dto.CreateCommentDTO) (*dto.CommentDTO, error)
	ListComments(ctx context.Context, viewer Viewer, characterID uint64, page *dto.PageDTO) ([]*dto.CommentDTO, error)
	ListReplies(ctx context.Context, viewer Viewer, commentID uint64) ([]*dto.CommentDTO, error)
	DeleteComment(ctx context.Context, viewer Viewer, commentID uint64) error
	ToggleLike(ctx context.Context, userID, commentID uint64) (*dto.LikeResultDTO, error)
	ReportComment(ctx context.Context, userID, commentID uint64) error
	Remoderate(ctx context.Context, commentID uint64) error
}

type CommentServiceImpl struct {
	commentRepo     repository.CommentRepo
	characterRepo   repository.CharacterRepo
	userRepo        repository.UserRepo
	uow             repository.UnitOfWork
	moderator       llm.Moderator
	suspender       SuspendService
	notifier        NotificationService
	queue           CommentAuditQueue
	reportThreshold int64
}

func NewCommentService(
	commentRepo repository.CommentRepo,
	characterRepo repository.CharacterRepo,
	userRepo repository.UserRepo,
	uow repository.UnitOfWork,
	moderator llm.Moderator,
	suspender SuspendService,
	notifier NotificationService,
	queue CommentAuditQueue,
	reportThreshold int,
) CommentService {
	return &CommentServiceImpl{
		commentRepo:     commentRepo,
		characterRepo:   characterRepo,
		userRepo:        userRepo,
		uow:             uow,
		moderator:       moderator,
		suspender:       suspender,
		notifier:        notifier,
		queue:           queue,
		reportThreshold: int64(reportThreshold),
	}
}

// CreateComment 评论只允许一层嵌套, 回复时父评论 reply_count 在同一事务内 +1
func (s *CommentServiceImpl) CreateComment(ctx context.Context, userID, characterID uint64, in *dto.CreateCommentDTO) (*dto.CommentDTO, error) {
	user, err := s.suspender.CheckStatus(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err = s.suspender.EnsureActive(user); err != nil {
		return nil, err
	}
	character, err := s.characterRepo.GetCharacterById(ctx, characterID)
	if err != nil {
		return nil, err
	}
	if character == nil || !isVisible(character, Viewer{UserID: userID, Role: user.Role}) {
		return nil, ErrCharacterNotFound
	}

	var parent *model.Comment
	if in.ParentID != nil {
		parent, err = s.commentRepo.GetCommentById(ctx, *in.ParentID)
		if err != nil {
			return nil, err
		}
		if parent == nil || parent.CharacterID != characterID {
			return nil, ErrCommentNotFound
		}
		if parent.ParentID != nil {
			return nil, ErrCommentNesting
		}
	}

	safe, err := s.moderator.ModerateText(ctx, in.Content)
	if err != nil {
		log.WarnContext(ctx, "comment moderation failed, treating as unsafe", "err", err)
		return nil, ErrContentUnsafe
	}
	if !safe {
		return nil, ErrContentUnsafe
	}

	comment := &model.Comment{
		CharacterID: characterID,
		UserID:      userID,
		ParentID:    in.ParentID,
		Content:     in.Content,
	}
	err = s.uow.Transaction(ctx, func(repos *repository.Repos) error {
		if err := repos.Comments.CreateComment(ctx, comment); err != nil {
			return err
		}
		if parent != nil {
			return repos.Comments.IncrReplyCount(ctx, parent.ID, 1)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}

	if parent != nil && parent.UserID != userID {
		notifyQuietly(ctx, s.notifier, &mongo.Notification{
			ReceiverID:  parent.UserID,
			EmitterID:   userID,
			CharacterID: characterID,
			Type:        mongo.NotifyReply,
			Message:     fmt.Sprintf("%s replied to your comment", user.Username),
		})
	} else if parent == nil && character.CreatorID != userID {
		notifyQuietly(ctx, s.notifier, &mongo.Notification{
			ReceiverID:  character.CreatorID,
			EmitterID:   userID,
			CharacterID: characterID,
			Type:        mongo.NotifyComment,
			Message:     fmt.Sprintf("%s commented on %s", user.Username, character.Name),
		})
	}

	result, err := s.toDTOs(ctx, Viewer{UserID: userID}, []*model.Comment{comment})
	if err != nil {
		return nil, err
	}
	return result[0], nil
}

func (s *CommentServiceImpl) ListComments(ctx context.Context, viewer Viewer, characterID uint64, page *dto.PageDTO) ([]*dto.CommentDTO, error) {
	character, err := s.characterRepo.GetCharacterById(ctx, characterID)
	if err != nil {
		return nil, err
	}
	if character == nil || !isVisible(character, viewer) {
		return nil, ErrCharacterNotFound
	}
	limit, offset := util.PageToLimit(page.Page, page.PageSize)
	comments, err := s.commentRepo.GetComments(ctx, characterID, limit, offset)
	if err != nil {
		return nil, err
	}
	return s.toDTOs(ctx, viewer, comments)
}

func (s *CommentServiceImpl) ListReplies(ctx context.Context, viewer Viewer, commentID uint64) ([]*dto.CommentDTO, error) {
	parent, err := s.commentRepo.GetCommentById(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, ErrCommentNotFound
	}
	replies, err := s.commentRepo.GetReplies(ctx, commentID)
	if err != nil {
		return nil, err
	}
	return s.toDTOs(ctx, viewer, replies)
}

// DeleteComment 作者或管理员删除, 连同直接回复与点赞
func (s *CommentServiceImpl) DeleteComment(ctx context.Context, viewer Viewer, commentID uint64) error {
	comment, err := s.commentRepo.GetCommentById(ctx, commentID)
	if err != nil {
		return err
	}
	if comment == nil {
		return ErrCommentNotFound
	}
	if comment.UserID != viewer.UserID && !viewer.IsAdmin() {
		return ForbiddenError
	}
	if err = s.removeComment(ctx, comment, 0); err != nil {
		return err
	}
	log.InfoContext(ctx, "comment deleted", "comment_id", commentID, "operator_id", viewer.UserID)
	return nil
}

// ToggleLike 点赞行与 likes_count 在同一事务内更新
func (s *CommentServiceImpl) ToggleLike(ctx context.Context, userID, commentID uint64) (*dto.LikeResultDTO, error) {
	comment, err := s.commentRepo.GetCommentById(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment == nil {
		return nil, ErrCommentNotFound
	}

	liked := false
	err = s.uow.Transaction(ctx, func(repos *repository.Repos) error {
		removed, err := repos.Comments.RemoveLike(ctx, userID, commentID)
		if err != nil {
			return err
		}
		delta := -1
		if !removed {
			added, err := repos.Comments.AddLike(ctx, userID, commentID)
			if err != nil {
				return err
			}
			if !added {
				return repository.ErrRowsAffected
			}
			delta, liked = 1, true
		}
		return repos.Comments.IncrLikesCount(ctx, commentID, delta)
	})
	if err != nil {
		return nil, fmt.Errorf("toggle like: %w", err)
	}

	count, err := s.commentRepo.CountLikes(ctx, commentID)
	if err != nil {
		return nil, err
	}
	return &dto.LikeResultDTO{Liked: liked, LikesCount: count}, nil
}

// ReportComment 每个用户对同一评论只计一次, 达到阈值后送入复审, 入队失败时退回进程内复审
func (s *CommentServiceImpl) ReportComment(ctx context.Context, userID, commentID uint64) error {
	comment, err := s.commentRepo.GetCommentById(ctx, commentID)
	if err != nil {
		return err
	}
	if comment == nil {
		return ErrCommentNotFound
	}
	if comment.UserID == userID {
		return ErrReportSelf
	}

	var count int64
	err = s.uow.Transaction(ctx, func(repos *repository.Repos) error {
		added, err := repos.Comments.AddReport(ctx, userID, commentID)
		if err != nil {
			return err
		}
		if !added {
			return ErrReportDuplicate
		}
		count, err = repos.Comments.IncrReportCount(ctx, commentID)
		return err
	})
	if err != nil {
		return err
	}
	if count < s.reportThreshold {
		return nil
	}

	log.InfoContext(ctx, "comment reached report threshold", "comment_id", commentID, "report_count", count)
	if s.queue != nil {
		err = s.queue.Enqueue(ctx, commentID)
		if err == nil {
			return nil
		}
		log.ErrorContext(ctx, "failed to enqueue comment remoderation, falling back to in-process", "comment_id", commentID, "err", err)
	}
	detached := context.WithoutCancel(ctx)
	go func() {
		if err := s.Remoderate(detached, commentID); err != nil {
			log.ErrorContext(detached, "comment remoderation failed", "comment_id", commentID, "err", err)
		}
	}()
	return nil
}

// Remoderate 复审评论, 审核服务出错时返回错误由调用方重试, 不删除评论
func (s *CommentServiceImpl) Remoderate(ctx context.Context, commentID uint64) error {
	comment, err := s.commentRepo.GetCommentById(ctx, commentID)
	if err != nil {
		return err
	}
	if comment == nil {
		return nil
	}

	safe, err := s.moderator.ModerateText(ctx, comment.Content)
	if err != nil {
		return fmt.Errorf("remoderate comment %d: %w", commentID, err)
	}
	if safe {
		log.InfoContext(ctx, "reported comment passed remoderation", "comment_id", commentID)
		return nil
	}

	if err = s.removeComment(ctx, comment, commentRemovalMerit); err != nil {
		return err
	}
	log.InfoContext(ctx, "comment removed by moderation", "comment_id", commentID, "author_id", comment.UserID)

	notifyQuietly(ctx, s.notifier, &mongo.Notification{
		ReceiverID:  comment.UserID,
		CharacterID: comment.CharacterID,
		Type:        mongo.NotifyCommentRemoved,
		Message:     "Your comment was removed for violating the community guidelines",
	})
	return nil
}

// removeComment 删除评论及回复, 回复时父评论计数 -1, merit 非 0 时调整作者信誉分
func (s *CommentServiceImpl) removeComment(ctx context.Context, comment *model.Comment, merit int) error {
	err := s.uow.Transaction(ctx, func(repos *repository.Repos) error {
		if _, err := repos.Comments.DeleteWithReplies(ctx, comment.ID); err != nil {
			return err
		}
		if comment.ParentID != nil {
			if err := repos.Comments.IncrReplyCount(ctx, *comment.ParentID, -1); err != nil {
				return err
			}
		}
		if merit != 0 {
			return repos.Users.AdjustMerit(ctx, comment.UserID, merit)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("remove comment: %w", err)
	}
	return nil
}

func (s *CommentServiceImpl) toDTOs(ctx context.Context, viewer Viewer, comments []*model.Comment) ([]*dto.CommentDTO, error) {
	results := make([]*dto.CommentDTO, 0, len(comments))
	if len(comments) == 0 {
		return results, nil
	}

	commentIDs := make([]uint64, 0, len(comments))
	userIDs := make([]uint64, 0, len(comments))
	for _, c := range comments {
		commentIDs = append(commentIDs, c.ID)
		if !util.ContainsUint64(userIDs, c.UserID) {
			userIDs = append(userIDs, c.UserID)
		}
	}
	users, err := s.userRepo.GetUsersByIds(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint64]*model.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	var liked []uint64
	if !viewer.IsGuest() {
		liked, err = s.commentRepo.GetLikedCommentIds(ctx, viewer.UserID, commentIDs)
		if err != nil {
			return nil, err
		}
	}

	for _, c := range comments {
		item := &dto.CommentDTO{}
		if err = copier.Copy(item, c); err != nil {
			return nil, err
		}
		if u, ok := byID[c.UserID]; ok {
			item.Username = u.Username
			item.AvatarURL = u.AvatarURL
		}
		item.IsLiked = util.ContainsUint64(liked, c.ID)
		results = append(results, item)
	}
	return results, nil
}
