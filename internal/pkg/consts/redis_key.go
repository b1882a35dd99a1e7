package consts

const (
	OTPCodeKey     = "otp:code:"     // otp:code:{context}:{userID}
	OTPAttemptsKey = "otp:attempts:" // otp:attempts:{context}:{userID}
	TokenBlackKey  = "token:black:"
)

const (
	UserReportLock    = "report:user:lock:"    // {reporter}:{target}
	CommentReportLock = "report:comment:lock:" // {reporter}:{comment}
)
