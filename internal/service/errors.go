package service

import (
	"Sodium/internal/pkg/llm"
	"Sodium/internal/pkg/mongo"
	"errors"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	TooManyRequests     = 429
	InternalServerError = 500
)

var (
	ErrParamInvalid        = errors.New("invalid parameters")
	ErrUserNotFound        = errors.New("user not found")
	ErrUserExist           = errors.New("username or email already registered")
	ErrCredentialsInvalid  = errors.New("invalid credentials")
	ErrEmailNotVerified    = errors.New("email not verified")
	ErrAlreadyVerified     = errors.New("email already verified")
	ErrUserSuspended       = errors.New("account is suspended")
	ErrUserBanned          = errors.New("account is banned")
	ErrOTPIncorrect        = errors.New("incorrect OTP")
	ErrOTPTooManyAttempts  = errors.New("too many attempts")
	ErrOTPExpired          = errors.New("OTP expired or not requested")
	ErrTokenInvalid        = errors.New("token invalid or expired")
	ErrCharacterNotFound   = errors.New("character not found")
	ErrModelNotSupported   = errors.New("model is not supported")
	ErrPaidModel           = errors.New("Paid subscription required to use this model")
	ErrResponseStyle       = errors.New("response style must be roleplay or professional")
	ErrMessageInvalid      = errors.New("message must be between 1 and 2000 characters")
	ErrMessageUnsafe       = errors.New("message violates the content policy")
	ErrContentUnsafe       = errors.New("content violates the content policy")
	ErrImageUnsafe         = errors.New("image violates the content policy")
	ErrImageRequired       = errors.New("image is required")
	ErrFileNotSupported    = errors.New("file type not supported")
	ErrFollowSelf          = errors.New("you cannot follow your own character")
	ErrReportSelf          = errors.New("you cannot report yourself")
	ErrReportDuplicate     = errors.New("you have already reported this")
	ErrSuspendAdmin        = errors.New("administrators cannot be suspended")
	ErrCommentNotFound     = errors.New("comment not found")
	ErrCommentNesting      = errors.New("replies can only be nested one level")
	ErrMemoryNotFound      = errors.New("no conversation with this character yet")
	ErrQuotaExceeded       = errors.New("model quota exceeded, please try again later")
	ErrDispatchFailed      = errors.New("failed to generate a reply")
	ErrInternal            = errors.New("internal error")
	UnauthorizedError      = errors.New("unauthorized")
	ForbiddenError         = errors.New("permission denied")
	UnExpectedError        = errors.New("Internal server error")
)

var ErrorMap = map[error]int{
	ErrParamInvalid:       BadRequest,
	ErrUserNotFound:       NotFound,
	ErrUserExist:          BadRequest,
	ErrCredentialsInvalid: Unauthorized,
	ErrEmailNotVerified:   Forbidden,
	ErrAlreadyVerified:    BadRequest,
	ErrUserSuspended:      Forbidden,
	ErrUserBanned:         Forbidden,
	ErrOTPIncorrect:       BadRequest,
	ErrOTPTooManyAttempts: TooManyRequests,
	ErrOTPExpired:         BadRequest,
	ErrTokenInvalid:       Unauthorized,
	ErrCharacterNotFound:  NotFound,
	ErrModelNotSupported:  BadRequest,
	ErrPaidModel:          BadRequest,
	ErrResponseStyle:      BadRequest,
	ErrMessageInvalid:     BadRequest,
	ErrMessageUnsafe:      BadRequest,
	ErrContentUnsafe:      BadRequest,
	ErrImageUnsafe:        BadRequest,
	ErrImageRequired:      BadRequest,
	ErrFileNotSupported:   BadRequest,
	ErrFollowSelf:         BadRequest,
	ErrReportSelf:         BadRequest,
	ErrReportDuplicate:    BadRequest,
	ErrSuspendAdmin:       BadRequest,
	ErrCommentNotFound:    NotFound,
	ErrCommentNesting:     BadRequest,
	ErrMemoryNotFound:     NotFound,
	ErrQuotaExceeded:      TooManyRequests,
	ErrDispatchFailed:     InternalServerError,
	ErrInternal:           InternalServerError,
	UnauthorizedError:     Unauthorized,
	ForbiddenError:        Forbidden,
	UnExpectedError:       InternalServerError,

	llm.ErrQuotaExceeded:          TooManyRequests,
	llm.ErrModelNotConfigured:     InternalServerError,
	mongo.ErrNotificationNotFound: NotFound,
}

// CodeOf 按 errors.Is 查找业务码, 包装过的错误同样生效
func CodeOf(err error) (int, error, bool) {
	if code, ok := ErrorMap[err]; ok {
		return code, err, true
	}
	for sentinel, code := range ErrorMap {
		if errors.Is(err, sentinel) {
			return code, sentinel, true
		}
	}
	return InternalServerError, UnExpectedError, false
}
