package consts

const (
	MimePrefixImage = "image"
)

const (
	OTPContextEmailVerification = "email_verification"
	OTPContextPasswordReset     = "password_reset"
)

const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

const (
	FolderCharacters = "characters"
	FolderAvatars    = "avatars"
)

const (
	ResponseStyleRoleplay     = "roleplay"
	ResponseStyleProfessional = "professional"
)
