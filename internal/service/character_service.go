package service

import (
	"Sodium/internal/api/dto"
	"Sodium/internal/model"
	"Sodium/internal/pkg/consts"
	"Sodium/internal/pkg/es"
	"Sodium/internal/pkg/llm"
	"Sodium/internal/pkg/minio"
	"Sodium/internal/pkg/mongo"
	"Sodium/internal/pkg/util"
	"Sodium/internal/repository"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"strings"

	"github.com/jinzhu/copier"
)

// Viewer 发起请求的用户, UserID 为 0 表示游客
type Viewer struct {
	UserID uint64
	Role   string
}

func (v Viewer) IsGuest() bool {
	return v.UserID == 0
}

func (v Viewer) IsAdmin() bool {
	return v.Role == model.RoleAdmin
}

// ImageFile 已落盘的上传文件
type ImageFile struct {
	Path string
	MIME string
}

type CharacterService interface {
	CreateCharacter(ctx context.Context, creatorID uint64, in *dto.CreateCharacterDTO, image *ImageFile) (*dto.CharacterDTO, error)
	GetCharacter(ctx context.Context, viewer Viewer, id uint64) (*dto.CharacterDTO, error)
	ListCharacters(ctx context.Context, viewer Viewer, query *dto.CharacterQueryDTO) ([]*dto.CharacterDTO, error)
	SearchCharacters(ctx context.Context, query *dto.SearchCharacterDTO) ([]*dto.CharacterDTO, error)
	ListCommunications(ctx context.Context, userID uint64) ([]*dto.CharacterDTO, error)
	UpdateCharacter(ctx context.Context, viewer Viewer, id uint64, in *dto.UpdateCharacterDTO) (*dto.CharacterDTO, error)
	UpdateImage(ctx context.Context, viewer Viewer, id uint64, image *ImageFile) (*dto.CharacterDTO, error)
	DeleteCharacter(ctx context.Context, viewer Viewer, id uint64) error
	ApproveCharacter(ctx context.Context, id uint64) (*dto.CharacterDTO, error)
}

type CharacterServiceImpl struct {
	characterRepo repository.CharacterRepo
	relationRepo  repository.RelationRepo
	uow           repository.UnitOfWork
	searchRepo    es.CharacterRepo
	storage       minio.Storage
	moderator     llm.Moderator
	memories      MemoryService
	suspender     SuspendService
	notifier      NotificationService
}

func NewCharacterService(
	characterRepo repository.CharacterRepo,
	relationRepo repository.RelationRepo,
	uow repository.UnitOfWork,
	searchRepo es.CharacterRepo,
	storage minio.Storage,
	moderator llm.Moderator,
	memories MemoryService,
	suspender SuspendService,
	notifier NotificationService,
) CharacterService {
	return &CharacterServiceImpl{
		characterRepo: characterRepo,
		relationRepo:  relationRepo,
		uow:           uow,
		searchRepo:    searchRepo,
		storage:       storage,
		moderator:     moderator,
		memories:      memories,
		suspender:     suspender,
		notifier:      notifier,
	}
}

// CreateCharacter 文本与图片审核通过后上传图片并创建角色, 新角色需要管理员审核
func (s *CharacterServiceImpl) CreateCharacter(ctx context.Context, creatorID uint64, in *dto.CreateCharacterDTO, image *ImageFile) (*dto.CharacterDTO, error) {
	if !llm.IsSupported(in.Model) {
		return nil, ErrModelNotSupported
	}
	creator, err := s.suspender.CheckStatus(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	if err = s.suspender.EnsureActive(creator); err != nil {
		return nil, err
	}

	if err = s.moderateText(ctx, in.Name, in.Description, in.Personality, in.Opening); err != nil {
		return nil, err
	}
	uploaded, err := s.moderateAndUpload(ctx, image)
	if err != nil {
		return nil, err
	}

	character := &model.Character{}
	if err = copier.Copy(character, in); err != nil {
		return nil, err
	}
	character.CreatorID = creatorID
	character.MBTI = strings.ToUpper(in.MBTI)
	character.ImageURL = uploaded.URL
	character.ImagePublicID = uploaded.PublicID
	character.IsApproved = false

	if err = s.characterRepo.CreateCharacter(ctx, character); err != nil {
		s.discardUpload(ctx, uploaded.PublicID)
		return nil, err
	}
	log.InfoContext(ctx, "character created", "character_id", character.ID, "creator_id", creatorID)

	return toCharacterDTO(character, false)
}

// GetCharacter 未审核的角色只对创作者和管理员可见
func (s *CharacterServiceImpl) GetCharacter(ctx context.Context, viewer Viewer, id uint64) (*dto.CharacterDTO, error) {
	character, err := s.visibleCharacter(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	following := false
	if !viewer.IsGuest() {
		following, err = s.relationRepo.IsFollowing(ctx, viewer.UserID, id)
		if err != nil {
			return nil, err
		}
	}
	return toCharacterDTO(character, following)
}

func (s *CharacterServiceImpl) ListCharacters(ctx context.Context, viewer Viewer, query *dto.CharacterQueryDTO) ([]*dto.CharacterDTO, error) {
	limit, offset := util.PageToLimit(query.Page, query.PageSize)

	var characters []*model.Character
	var err error
	if query.CreatorID != 0 {
		onlyApproved := viewer.UserID != query.CreatorID && !viewer.IsAdmin()
		characters, err = s.characterRepo.ListByCreator(ctx, query.CreatorID, onlyApproved, limit, offset)
	} else {
		characters, err = s.characterRepo.ListApproved(ctx, limit, offset)
	}
	if err != nil {
		return nil, err
	}
	return s.withFollowing(ctx, viewer, characters)
}

// SearchCharacters 优先走 ES, 未启用时退化为名称模糊匹配
func (s *CharacterServiceImpl) SearchCharacters(ctx context.Context, query *dto.SearchCharacterDTO) ([]*dto.CharacterDTO, error) {
	limit, offset := util.PageToLimit(query.Page, query.PageSize)
	keyword := strings.TrimSpace(query.Query)

	hits, err := s.searchRepo.SearchCharacters(ctx, keyword, offset, limit)
	if errors.Is(err, es.ErrSearchDisabled) {
		characters, err := s.characterRepo.SearchByName(ctx, keyword, limit, offset)
		if err != nil {
			return nil, err
		}
		return toCharacterDTOs(characters, nil)
	}
	if err != nil {
		return nil, err
	}

	ids := make([]uint64, 0, len(hits))
	for _, hit := range hits {
		ids = append(ids, hit.ID)
	}
	characters, err := s.characterRepo.GetCharactersByIds(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint64]*model.Character, len(characters))
	for _, c := range characters {
		byID[c.ID] = c
	}
	ordered := make([]*model.Character, 0, len(ids))
	for _, id := range ids {
		if c, ok := byID[id]; ok && c.IsApproved {
			ordered = append(ordered, c)
		}
	}
	return toCharacterDTOs(ordered, nil)
}

// ListCommunications 用户对话过的角色
func (s *CharacterServiceImpl) ListCommunications(ctx context.Context, userID uint64) ([]*dto.CharacterDTO, error) {
	ids, err := s.relationRepo.GetCommunicationIds(ctx, userID)
	if err != nil {
		return nil, err
	}
	characters, err := s.characterRepo.GetCharactersByIds(ctx, ids)
	if err != nil {
		return nil, err
	}
	return s.withFollowing(ctx, Viewer{UserID: userID}, characters)
}

// UpdateCharacter 仅创作者可修改, 修改后的文本重新审核
func (s *CharacterServiceImpl) UpdateCharacter(ctx context.Context, viewer Viewer, id uint64, in *dto.UpdateCharacterDTO) (*dto.CharacterDTO, error) {
	character, err := s.ownedCharacter(ctx, viewer, id, false)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]any)
	texts := make([]string, 0, 4)
	set := func(column string, value *string, moderated bool) {
		if value == nil {
			return
		}
		fields[column] = *value
		if moderated {
			texts = append(texts, *value)
		}
	}
	set("name", in.Name, true)
	set("description", in.Description, true)
	set("gender", in.Gender, false)
	set("personality", in.Personality, true)
	set("opening", in.Opening, true)
	set("enneagram", in.Enneagram, false)
	set("attachment_style", in.AttachmentStyle, false)
	set("zodiac", in.Zodiac, false)
	if in.MBTI != nil {
		fields["mbti"] = strings.ToUpper(*in.MBTI)
	}
	if in.Model != nil {
		if !llm.IsSupported(*in.Model) {
			return nil, ErrModelNotSupported
		}
		fields["model"] = *in.Model
	}
	if len(fields) == 0 {
		return toCharacterDTO(character, false)
	}

	if err = s.moderateText(ctx, texts...); err != nil {
		return nil, err
	}
	if err = s.characterRepo.UpdateCharacter(ctx, id, fields); err != nil {
		return nil, err
	}
	return s.reloadAndIndex(ctx, id)
}

// UpdateImage 先上传新图并落库, 再删除旧图; 旧图删除失败时恢复旧字段并回收新图
func (s *CharacterServiceImpl) UpdateImage(ctx context.Context, viewer Viewer, id uint64, image *ImageFile) (*dto.CharacterDTO, error) {
	character, err := s.ownedCharacter(ctx, viewer, id, false)
	if err != nil {
		return nil, err
	}
	uploaded, err := s.moderateAndUpload(ctx, image)
	if err != nil {
		return nil, err
	}

	err = s.characterRepo.UpdateCharacter(ctx, id, map[string]any{
		"image_url":       uploaded.URL,
		"image_public_id": uploaded.PublicID,
	})
	if err != nil {
		s.discardUpload(ctx, uploaded.PublicID)
		return nil, err
	}

	if character.ImagePublicID != "" {
		if _, err = s.storage.Delete(ctx, character.ImagePublicID, minio.ResourceImage); err != nil {
			restoreErr := s.characterRepo.UpdateCharacter(ctx, id, map[string]any{
				"image_url":       character.ImageURL,
				"image_public_id": character.ImagePublicID,
			})
			if restoreErr != nil {
				log.ErrorContext(ctx, "failed to restore previous image", "character_id", id, "err", restoreErr)
				return nil, fmt.Errorf("delete previous image: %w", err)
			}
			s.discardUpload(ctx, uploaded.PublicID)
			return nil, fmt.Errorf("delete previous image: %w", err)
		}
	}
	return s.reloadAndIndex(ctx, id)
}

// DeleteCharacter 创作者或管理员删除, 关系/评论/角色在同一事务内删除, 提交后清理记忆/图片/索引
func (s *CharacterServiceImpl) DeleteCharacter(ctx context.Context, viewer Viewer, id uint64) error {
	character, err := s.ownedCharacter(ctx, viewer, id, true)
	if err != nil {
		return err
	}

	err = s.uow.Transaction(ctx, func(repos *repository.Repos) error {
		followers, err := repos.Relations.DeleteByCharacter(ctx, id)
		if err != nil {
			return err
		}
		if err = repos.Comments.DeleteByCharacter(ctx, id); err != nil {
			return err
		}
		if err = repos.Characters.DeleteCharacter(ctx, id); err != nil {
			return err
		}
		if followers > 0 {
			return repos.Users.IncrTotalFollowers(ctx, character.CreatorID, -int(followers))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete character: %w", err)
	}

	if err = s.memories.DeleteByCharacter(ctx, id); err != nil {
		log.ErrorContext(ctx, "failed to delete character memories", "character_id", id, "err", err)
	}
	if _, err = s.storage.Delete(ctx, character.ImagePublicID, minio.ResourceImage); err != nil {
		log.WarnContext(ctx, "failed to delete character image", "character_id", id, "err", err)
	}
	if err = s.searchRepo.DeleteCharacter(ctx, id); err != nil {
		log.WarnContext(ctx, "failed to delete character from index", "character_id", id, "err", err)
	}
	log.InfoContext(ctx, "character deleted", "character_id", id, "operator_id", viewer.UserID)
	return nil
}

// ApproveCharacter 管理员审核通过, 通过后进入公开列表与搜索索引
func (s *CharacterServiceImpl) ApproveCharacter(ctx context.Context, id uint64) (*dto.CharacterDTO, error) {
	character, err := s.characterRepo.GetCharacterById(ctx, id)
	if err != nil {
		return nil, err
	}
	if character == nil {
		return nil, ErrCharacterNotFound
	}
	if character.IsApproved {
		return toCharacterDTO(character, false)
	}
	if err = s.characterRepo.UpdateCharacter(ctx, id, map[string]any{"is_approved": true}); err != nil {
		return nil, err
	}

	notifyQuietly(ctx, s.notifier, &mongo.Notification{
		ReceiverID:  character.CreatorID,
		CharacterID: id,
		Type:        mongo.NotifySystem,
		Message:     fmt.Sprintf("Your character %s has been approved", character.Name),
	})
	return s.reloadAndIndex(ctx, id)
}

func (s *CharacterServiceImpl) visibleCharacter(ctx context.Context, viewer Viewer, id uint64) (*model.Character, error) {
	character, err := s.characterRepo.GetCharacterById(ctx, id)
	if err != nil {
		return nil, err
	}
	if character == nil || !isVisible(character, viewer) {
		return nil, ErrCharacterNotFound
	}
	return character, nil
}

func (s *CharacterServiceImpl) ownedCharacter(ctx context.Context, viewer Viewer, id uint64, allowAdmin bool) (*model.Character, error) {
	character, err := s.characterRepo.GetCharacterById(ctx, id)
	if err != nil {
		return nil, err
	}
	if character == nil {
		return nil, ErrCharacterNotFound
	}
	if character.CreatorID == viewer.UserID || (allowAdmin && viewer.IsAdmin()) {
		return character, nil
	}
	return nil, ForbiddenError
}

// moderateText 审核出错按不安全处理
func (s *CharacterServiceImpl) moderateText(ctx context.Context, texts ...string) error {
	parts := make([]string, 0, len(texts))
	for _, text := range texts {
		if text = strings.TrimSpace(text); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	content := strings.Join(parts, "\n")
	safe, err := s.moderator.ModerateText(ctx, content)
	if err != nil {
		log.WarnContext(ctx, "text moderation failed, treating as unsafe", "err", err)
		return ErrContentUnsafe
	}
	if !safe {
		return ErrContentUnsafe
	}
	return nil
}

func (s *CharacterServiceImpl) moderateAndUpload(ctx context.Context, image *ImageFile) (*minio.UploadResult, error) {
	if image == nil || image.Path == "" {
		return nil, ErrImageRequired
	}
	if !strings.HasPrefix(image.MIME, consts.MimePrefixImage) {
		return nil, ErrFileNotSupported
	}
	data, err := os.ReadFile(image.Path)
	if err != nil {
		return nil, err
	}
	safe, err := s.moderator.ModerateImage(ctx, data, image.MIME)
	if err != nil {
		return nil, fmt.Errorf("moderate image: %w", err)
	}
	if !safe {
		return nil, ErrImageUnsafe
	}
	return s.storage.Upload(ctx, image.Path, consts.FolderCharacters)
}

func (s *CharacterServiceImpl) discardUpload(ctx context.Context, publicID string) {
	if _, err := s.storage.Delete(ctx, publicID, minio.ResourceImage); err != nil {
		log.WarnContext(ctx, "failed to discard uploaded image", "public_id", publicID, "err", err)
	}
}

// reloadAndIndex 重新读取角色, 已审核的同步到搜索索引
func (s *CharacterServiceImpl) reloadAndIndex(ctx context.Context, id uint64) (*dto.CharacterDTO, error) {
	character, err := s.characterRepo.GetCharacterById(ctx, id)
	if err != nil {
		return nil, err
	}
	if character == nil {
		return nil, ErrCharacterNotFound
	}
	if character.IsApproved {
		if err = s.searchRepo.IndexCharacter(ctx, es.NewCharacterES(character)); err != nil {
			log.WarnContext(ctx, "failed to index character", "character_id", id, "err", err)
		}
	}
	return toCharacterDTO(character, false)
}

func (s *CharacterServiceImpl) withFollowing(ctx context.Context, viewer Viewer, characters []*model.Character) ([]*dto.CharacterDTO, error) {
	var following []uint64
	if !viewer.IsGuest() && len(characters) > 0 {
		var err error
		following, err = s.relationRepo.GetFollowingIds(ctx, viewer.UserID)
		if err != nil {
			return nil, err
		}
	}
	return toCharacterDTOs(characters, following)
}

func isVisible(character *model.Character, viewer Viewer) bool {
	if character.IsApproved {
		return true
	}
	if viewer.IsGuest() {
		return false
	}
	return viewer.UserID == character.CreatorID || viewer.IsAdmin()
}

func toCharacterDTO(character *model.Character, following bool) (*dto.CharacterDTO, error) {
	result := &dto.CharacterDTO{}
	if err := copier.Copy(result, character); err != nil {
		return nil, err
	}
	result.IsFollowing = following
	return result, nil
}

func toCharacterDTOs(characters []*model.Character, following []uint64) ([]*dto.CharacterDTO, error) {
	results := make([]*dto.CharacterDTO, 0, len(characters))
	for _, c := range characters {
		item, err := toCharacterDTO(c, util.ContainsUint64(following, c.ID))
		if err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	return results, nil
}
