package dto

// UnreadCountDTO 未读数
type UnreadCountDTO struct {
	Count int64 `json:"count"`
}
