package dto

// RegisterDTO 注册
type RegisterDTO struct {
	Username string `json:"username" validate:"required,min=3,max=30,alphanum"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=64"`
	Fullname string `json:"fullname" validate:"omitempty,max=60"`
}

// LoginDTO 登录, identifier 为用户名或邮箱
type LoginDTO struct {
	Identifier string `json:"identifier" validate:"required,max=255"`
	Password   string `json:"password" validate:"required,max=64"`
}

// VerifyOTPDTO 邮箱验证
type VerifyOTPDTO struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

// ResendOTPDTO 重新发送验证码
type ResendOTPDTO struct {
	Email string `json:"email" validate:"required,email"`
}

// ForgotPasswordDTO 忘记密码
type ForgotPasswordDTO struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordDTO 重置密码
type ResetPasswordDTO struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=64"`
}

// TokenPair 登录签发的令牌
type TokenPair struct {
	AccessToken  string `json:"-"`
	RefreshToken string `json:"-"`
	User         *UserDTO
}
