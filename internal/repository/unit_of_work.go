package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ErrRowsAffected 计数或关系更新未命中预期行，整笔事务需要回滚
var ErrRowsAffected = errors.New("unexpected rows affected")

// Repos 同一个数据库会话(或事务)下的仓储集合
type Repos struct {
	Users      UserRepo
	Characters CharacterRepo
	Relations  RelationRepo
	Comments   CommentRepo
	Moderation ModerationRepo
}

func NewRepos(db *gorm.DB) *Repos {
	return &Repos{
		Users:      NewUserRepo(db),
		Characters: NewCharacterRepo(db),
		Relations:  NewRelationRepo(db),
		Comments:   NewCommentRepo(db),
		Moderation: NewModerationRepo(db),
	}
}

// UnitOfWork 事务单元: fn 返回任何错误都会整体回滚
type UnitOfWork interface {
	Transaction(ctx context.Context, fn func(repos *Repos) error) error
}

type gormUnitOfWork struct {
	db *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &gormUnitOfWork{db: db}
}

func (s *gormUnitOfWork) Transaction(ctx context.Context, fn func(repos *Repos) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepos(tx))
	})
}

// expectOne 校验写操作恰好影响一行
func expectOne(result *gorm.DB) error {
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected != 1 {
		return ErrRowsAffected
	}
	return nil
}
