package service

import (
	"Sodium/internal/api/dto"
	"Sodium/internal/pkg/mongo"
	"Sodium/internal/repository"
	"context"
	"fmt"
	log "log/slog"
)

// followMerit 创作者每获得一个关注的信誉分变化
const followMerit = 1

type FollowService interface {
	ToggleFollow(ctx context.Context, userID, characterID uint64) (*dto.FollowResultDTO, error)
	GetFollowing(ctx context.Context, userID uint64) ([]*dto.CharacterDTO, error)
}

type FollowServiceImpl struct {
	characterRepo repository.CharacterRepo
	relationRepo  repository.RelationRepo
	uow           repository.UnitOfWork
	notifier      NotificationService
}

func NewFollowService(
	characterRepo repository.CharacterRepo,
	relationRepo repository.RelationRepo,
	uow repository.UnitOfWork,
	notifier NotificationService,
) FollowService {
	return &FollowServiceImpl{
		characterRepo: characterRepo,
		relationRepo:  relationRepo,
		uow:           uow,
		notifier:      notifier,
	}
}

// ToggleFollow 关注或取消关注, 关系行/角色粉丝数/创作者总粉丝数/信誉分在同一事务内更新
func (s *FollowServiceImpl) ToggleFollow(ctx context.Context, userID, characterID uint64) (*dto.FollowResultDTO, error) {
	character, err := s.characterRepo.GetCharacterById(ctx, characterID)
	if err != nil {
		return nil, err
	}
	if character == nil || !character.IsApproved {
		return nil, ErrCharacterNotFound
	}
	if character.CreatorID == userID {
		return nil, ErrFollowSelf
	}

	following := false
	err = s.uow.Transaction(ctx, func(repos *repository.Repos) error {
		removed, err := repos.Relations.RemoveFollower(ctx, userID, characterID)
		if err != nil {
			return err
		}
		delta := -1
		if !removed {
			added, err := repos.Relations.AddFollower(ctx, userID, characterID)
			if err != nil {
				return err
			}
			if !added {
				return repository.ErrRowsAffected
			}
			delta, following = 1, true
		}
		if err = repos.Characters.IncrFollowerCount(ctx, characterID, delta); err != nil {
			return err
		}
		if err = repos.Users.IncrTotalFollowers(ctx, character.CreatorID, delta); err != nil {
			return err
		}
		return repos.Users.AdjustMerit(ctx, character.CreatorID, delta*followMerit)
	})
	if err != nil {
		return nil, fmt.Errorf("toggle follow: %w", err)
	}

	count, err := s.relationRepo.CountFollowers(ctx, characterID)
	if err != nil {
		return nil, err
	}
	if following {
		notifyQuietly(ctx, s.notifier, &mongo.Notification{
			ReceiverID:  character.CreatorID,
			EmitterID:   userID,
			CharacterID: characterID,
			Type:        mongo.NotifyFollow,
			Message:     fmt.Sprintf("Someone started following %s", character.Name),
		})
	}
	log.InfoContext(ctx, "follow toggled", "user_id", userID, "character_id", characterID, "following", following)

	return &dto.FollowResultDTO{
		Following:     following,
		FollowerCount: count,
	}, nil
}

// GetFollowing 用户关注的角色
func (s *FollowServiceImpl) GetFollowing(ctx context.Context, userID uint64) ([]*dto.CharacterDTO, error) {
	ids, err := s.relationRepo.GetFollowingIds(ctx, userID)
	if err != nil {
		return nil, err
	}
	characters, err := s.characterRepo.GetCharactersByIds(ctx, ids)
	if err != nil {
		return nil, err
	}
	return toCharacterDTOs(characters, ids)
}
