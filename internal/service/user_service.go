package service

import (
	"Sodium/internal/api/dto"
	"Sodium/internal/model"
	"Sodium/internal/pkg/consts"
	"Sodium/internal/pkg/llm"
	"Sodium/internal/pkg/mail"
	"Sodium/internal/pkg/minio"
	"Sodium/internal/pkg/redis"
	"Sodium/internal/pkg/security"
	"Sodium/internal/repository"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"strings"
	"time"

	"github.com/jinzhu/copier"
)

// publicCreationsLimit 公开主页展示的作品数量
const publicCreationsLimit = 50

type UserService interface {
	Register(ctx context.Context, in *dto.RegisterDTO) (*dto.UserDTO, error)
	VerifyEmail(ctx context.Context, in *dto.VerifyOTPDTO) error
	ResendOTP(ctx context.Context, email string) error
	Login(ctx context.Context, in *dto.LoginDTO) (*dto.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.TokenPair, error)
	Logout(ctx context.Context, tokens ...string) error
	IsTokenRevoked(ctx context.Context, token string) (bool, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, in *dto.ResetPasswordDTO) error
	GetMe(ctx context.Context, userID uint64) (*dto.UserDTO, error)
	UpdateProfile(ctx context.Context, userID uint64, in *dto.UpdateProfileDTO) (*dto.UserDTO, error)
	UpdateAvatar(ctx context.Context, userID uint64, image *ImageFile) (*dto.UserDTO, error)
	GetPublicProfile(ctx context.Context, viewer Viewer, userID uint64) (*dto.PublicUserDTO, error)
	SetSubscription(ctx context.Context, userID uint64, isPaid bool) (*dto.UserDTO, error)
}

type UserServiceImpl struct {
	userRepo      repository.UserRepo
	characterRepo repository.CharacterRepo
	otp           OTPService
	tokens        *security.TokenManager
	store         redis.Store
	storage       minio.Storage
	moderator     llm.Moderator
	mailer        mail.Sender
	suspender     SuspendService
}

func NewUserService(
	userRepo repository.UserRepo,
	characterRepo repository.CharacterRepo,
	otp OTPService,
	tokens *security.TokenManager,
	store redis.Store,
	storage minio.Storage,
	moderator llm.Moderator,
	mailer mail.Sender,
	suspender SuspendService,
) UserService {
	return &UserServiceImpl{
		userRepo:      userRepo,
		characterRepo: characterRepo,
		otp:           otp,
		tokens:        tokens,
		store:         store,
		storage:       storage,
		moderator:     moderator,
		mailer:        mailer,
		suspender:     suspender,
	}
}

// Register 创建未验证账号并发送邮箱验证码
func (s *UserServiceImpl) Register(ctx context.Context, in *dto.RegisterDTO) (*dto.UserDTO, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	exist, err := s.userRepo.GetUserByUsername(ctx, in.Username)
	if err != nil {
		return nil, err
	}
	if exist == nil {
		exist, err = s.userRepo.GetUserByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
	}
	if exist != nil {
		return nil, ErrUserExist
	}

	passwordHash, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Username: in.Username,
		Email:    email,
		Password: passwordHash,
		Fullname: in.Fullname,
		Role:     model.RoleUser,
		Status:   model.UserStatusActive,
	}
	if err = s.userRepo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	log.InfoContext(ctx, "user registered", "user_id", user.ID)

	if err = s.sendOTP(ctx, user, consts.OTPContextEmailVerification); err != nil {
		return nil, err
	}
	return toUserDTO(user)
}

func (s *UserServiceImpl) VerifyEmail(ctx context.Context, in *dto.VerifyOTPDTO) error {
	user, err := s.userByEmail(ctx, in.Email)
	if err != nil {
		return err
	}
	if user.IsVerified {
		return ErrAlreadyVerified
	}
	if err = s.otp.Verify(ctx, user.ID, consts.OTPContextEmailVerification, in.Code); err != nil {
		return err
	}
	return s.userRepo.UpdateUser(ctx, user.ID, map[string]any{"is_verified": true})
}

func (s *UserServiceImpl) ResendOTP(ctx context.Context, email string) error {
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.IsVerified {
		return ErrAlreadyVerified
	}
	return s.sendOTP(ctx, user, consts.OTPContextEmailVerification)
}

// Login identifier 含 @ 时按邮箱查找, 否则按用户名
func (s *UserServiceImpl) Login(ctx context.Context, in *dto.LoginDTO) (*dto.TokenPair, error) {
	var user *model.User
	var err error
	identifier := strings.TrimSpace(in.Identifier)
	if strings.Contains(identifier, "@") {
		user, err = s.userRepo.GetUserByEmail(ctx, strings.ToLower(identifier))
	} else {
		user, err = s.userRepo.GetUserByUsername(ctx, identifier)
	}
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrCredentialsInvalid
	}
	if err = security.CheckPasswordHash(in.Password, user.Password); err != nil {
		return nil, ErrCredentialsInvalid
	}

	user, err = s.suspender.CheckStatus(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if user.Status == model.UserStatusBanned {
		return nil, ErrUserBanned
	}
	if !user.IsVerified {
		return nil, ErrEmailNotVerified
	}
	return s.issueTokens(user, "")
}

// Refresh 用刷新令牌换取新的访问令牌
func (s *UserServiceImpl) Refresh(ctx context.Context, refreshToken string) (*dto.TokenPair, error) {
	claims, err := s.tokens.ValidateToken(refreshToken, security.TokenTypeRefresh)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	revoked, err := s.IsTokenRevoked(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenInvalid
	}

	user, err := s.suspender.CheckStatus(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}
	if user.Status == model.UserStatusBanned {
		return nil, ErrUserBanned
	}
	return s.issueTokens(user, refreshToken)
}

// Logout 将令牌签名加入黑名单直到令牌自然过期
func (s *UserServiceImpl) Logout(ctx context.Context, tokens ...string) error {
	for _, token := range tokens {
		if token == "" {
			continue
		}
		ttl := s.tokens.RefreshTTL()
		if claims, err := s.tokens.ValidateToken(token, security.TokenTypeAccess); err == nil && claims.ExpiresAt != nil {
			ttl = time.Until(claims.ExpiresAt.Time)
		}
		if ttl <= 0 {
			continue
		}
		signature, err := security.ExtractSignature(token)
		if err != nil {
			continue
		}
		if err = s.store.SetWithExpiration(ctx, consts.TokenBlackKey+signature, 1, ttl); err != nil {
			return err
		}
	}
	return nil
}

func (s *UserServiceImpl) IsTokenRevoked(ctx context.Context, token string) (bool, error) {
	signature, err := security.ExtractSignature(token)
	if err != nil {
		return true, nil
	}
	value, err := s.store.GetValue(ctx, consts.TokenBlackKey+signature)
	if err != nil {
		return false, err
	}
	return value != "", nil
}

// ForgotPassword 邮箱不存在时静默成功
func (s *UserServiceImpl) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.userRepo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return err
	}
	if user == nil {
		log.InfoContext(ctx, "password reset requested for unknown email")
		return nil
	}
	return s.sendOTP(ctx, user, consts.OTPContextPasswordReset)
}

func (s *UserServiceImpl) ResetPassword(ctx context.Context, in *dto.ResetPasswordDTO) error {
	user, err := s.userByEmail(ctx, in.Email)
	if err != nil {
		return err
	}
	if err = s.otp.Verify(ctx, user.ID, consts.OTPContextPasswordReset, in.Code); err != nil {
		return err
	}
	passwordHash, err := security.HashPassword(in.NewPassword)
	if err != nil {
		return err
	}
	return s.userRepo.UpdateUser(ctx, user.ID, map[string]any{"password": passwordHash})
}

func (s *UserServiceImpl) GetMe(ctx context.Context, userID uint64) (*dto.UserDTO, error) {
	user, err := s.suspender.CheckStatus(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toUserDTO(user)
}

func (s *UserServiceImpl) UpdateProfile(ctx context.Context, userID uint64, in *dto.UpdateProfileDTO) (*dto.UserDTO, error) {
	fields := make(map[string]any)
	if in.Username != nil {
		exist, err := s.userRepo.GetUserByUsername(ctx, *in.Username)
		if err != nil {
			return nil, err
		}
		if exist != nil && exist.ID != userID {
			return nil, ErrUserExist
		}
		fields["username"] = *in.Username
	}
	if in.Fullname != nil {
		fields["fullname"] = *in.Fullname
	}
	if len(fields) > 0 {
		if err := s.userRepo.UpdateUser(ctx, userID, fields); err != nil {
			return nil, err
		}
	}
	return s.GetMe(ctx, userID)
}

// UpdateAvatar 头像同样需要通过图片审核
func (s *UserServiceImpl) UpdateAvatar(ctx context.Context, userID uint64, image *ImageFile) (*dto.UserDTO, error) {
	if image == nil || image.Path == "" {
		return nil, ErrImageRequired
	}
	if !strings.HasPrefix(image.MIME, consts.MimePrefixImage) {
		return nil, ErrFileNotSupported
	}
	user, err := s.suspender.CheckStatus(ctx, userID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(image.Path)
	if err != nil {
		return nil, err
	}
	safe, err := s.moderator.ModerateImage(ctx, data, image.MIME)
	if err != nil {
		return nil, fmt.Errorf("moderate avatar: %w", err)
	}
	if !safe {
		return nil, ErrImageUnsafe
	}

	uploaded, err := s.storage.Upload(ctx, image.Path, consts.FolderAvatars)
	if err != nil {
		return nil, err
	}
	err = s.userRepo.UpdateUser(ctx, userID, map[string]any{
		"avatar_url":       uploaded.URL,
		"avatar_public_id": uploaded.PublicID,
	})
	if err != nil {
		if _, delErr := s.storage.Delete(ctx, uploaded.PublicID, minio.ResourceImage); delErr != nil {
			log.WarnContext(ctx, "failed to discard uploaded avatar", "public_id", uploaded.PublicID, "err", delErr)
		}
		return nil, err
	}
	if user.AvatarPublicID != "" {
		if _, err = s.storage.Delete(ctx, user.AvatarPublicID, minio.ResourceImage); err != nil {
			log.WarnContext(ctx, "failed to delete previous avatar", "public_id", user.AvatarPublicID, "err", err)
		}
	}
	return s.GetMe(ctx, userID)
}

// GetPublicProfile 他人只能看到已审核的作品
func (s *UserServiceImpl) GetPublicProfile(ctx context.Context, viewer Viewer, userID uint64) (*dto.PublicUserDTO, error) {
	user, err := s.userRepo.GetUserById(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	onlyApproved := viewer.UserID != userID && !viewer.IsAdmin()
	creations, err := s.characterRepo.ListByCreator(ctx, userID, onlyApproved, publicCreationsLimit, 0)
	if err != nil {
		return nil, err
	}

	result := &dto.PublicUserDTO{}
	if err = copier.Copy(result, user); err != nil {
		return nil, err
	}
	result.Creations, err = toCharacterDTOs(creations, nil)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *UserServiceImpl) SetSubscription(ctx context.Context, userID uint64, isPaid bool) (*dto.UserDTO, error) {
	user, err := s.userRepo.GetUserById(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if err = s.userRepo.UpdateUser(ctx, userID, map[string]any{"is_paid": isPaid}); err != nil {
		return nil, err
	}
	log.InfoContext(ctx, "subscription updated", "user_id", userID, "is_paid", isPaid)
	user.IsPaid = isPaid
	return toUserDTO(user)
}

func (s *UserServiceImpl) userByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := s.userRepo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *UserServiceImpl) sendOTP(ctx context.Context, user *model.User, purpose string) error {
	code, err := s.otp.Generate(ctx, user.ID, purpose)
	if err != nil {
		return err
	}
	subject := "Verify your email"
	if purpose == consts.OTPContextPasswordReset {
		subject = "Reset your password"
	}
	text := fmt.Sprintf("Hi %s, your verification code is %s.", user.Username, code)
	sendMailAsync(ctx, s.mailer, user.Email, subject, text, "")
	return nil
}

// issueTokens refreshToken 非空时沿用原刷新令牌
func (s *UserServiceImpl) issueTokens(user *model.User, refreshToken string) (*dto.TokenPair, error) {
	accessToken, err := s.tokens.GenerateAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	if refreshToken == "" {
		refreshToken, err = s.tokens.GenerateRefreshToken(user.ID, user.Role)
		if err != nil {
			return nil, err
		}
	}
	userDTO, err := toUserDTO(user)
	if err != nil {
		return nil, err
	}
	return &dto.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         userDTO,
	}, nil
}

func toUserDTO(user *model.User) (*dto.UserDTO, error) {
	result := &dto.UserDTO{}
	if err := copier.Copy(result, user); err != nil {
		return nil, err
	}
	return result, nil
}
