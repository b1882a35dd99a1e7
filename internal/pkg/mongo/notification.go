package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationCapacity 每个用户最多保留的通知条数
const NotificationCapacity = 50

const (
	NotifyCommunicate      = "communicate"
	NotifyFollow           = "follow"
	NotifyComment          = "comment"
	NotifyReply            = "reply"
	NotifyCommentRemoved   = "comment_removed"
	NotifySuspension       = "suspension"
	NotifySuspensionLifted = "suspension_lifted"
	NotifySystem           = "system"
)

// Notification 站内通知
type Notification struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ReceiverID  uint64             `bson:"receiver_id" json:"receiverId"`
	EmitterID   uint64             `bson:"emitter_id" json:"emitterId"` // 0 表示系统
	CharacterID uint64             `bson:"character_id,omitempty" json:"characterId,omitempty"`
	Type        string             `bson:"type" json:"type"`
	Message     string             `bson:"message" json:"message"`
	IsRead      bool               `bson:"is_read" json:"isRead"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
}
