package service

import (
	"Sodium/internal/model"
	"Sodium/internal/pkg/database"
	"Sodium/internal/pkg/llm"
	"Sodium/internal/pkg/mail"
	"Sodium/internal/pkg/minio"
	"Sodium/internal/pkg/mongo"
	"Sodium/internal/pkg/util"
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, name string, mutate ...func(*model.User)) *model.User {
	t.Helper()
	u := &model.User{
		Username:   name,
		Email:      name + "@example.com",
		Password:   "x",
		Role:       model.RoleUser,
		Status:     model.UserStatusActive,
		IsVerified: true,
	}
	for _, fn := range mutate {
		fn(u)
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedCharacter(t *testing.T, db *gorm.DB, creatorID uint64, modelID string) *model.Character {
	t.Helper()
	c := &model.Character{
		CreatorID:   creatorID,
		Name:        "Nova",
		Gender:      "female",
		Personality: "warm and curious",
		Opening:     "Hello there, traveler!",
		Model:       modelID,
		IsApproved:  true,
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

// failWrites 开关打开时, 对指定表的 create/update 返回错误
func failWrites(t *testing.T, db *gorm.DB, table string) *atomic.Bool {
	t.Helper()
	enabled := &atomic.Bool{}
	fail := func(tx *gorm.DB) {
		if enabled.Load() && tx.Statement.Table == table {
			_ = tx.AddError(fmt.Errorf("%s unavailable", table))
		}
	}
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:fail_create_"+table, fail))
	require.NoError(t, db.Callback().Update().Before("gorm:update").Register("test:fail_update_"+table, fail))
	return enabled
}

// onceAfterQuery 下一次查询指定表之后执行一次 fn, 用于模拟并发提交
func onceAfterQuery(t *testing.T, db *gorm.DB, table string, fn func()) {
	t.Helper()
	var fired atomic.Bool
	err := db.Callback().Query().After("gorm:query").Register("test:after_query_"+table, func(tx *gorm.DB) {
		if tx.Statement.Table == table && fired.CompareAndSwap(false, true) {
			fn()
		}
	})
	require.NoError(t, err)
}

// fakeMemoryRepo 以 (user, character) 为唯一键, 写入时校验版本
type fakeMemoryRepo struct {
	mu       sync.Mutex
	memories map[primitive.ObjectID]*mongo.Memory
	creates  atomic.Int32
}

func newFakeMemoryRepo() *fakeMemoryRepo {
	return &fakeMemoryRepo{memories: make(map[primitive.ObjectID]*mongo.Memory)}
}

func (f *fakeMemoryRepo) CreateMemory(_ context.Context, memory *mongo.Memory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.memories {
		if m.UserID == memory.UserID && m.CharacterID == memory.CharacterID {
			return mongo.ErrMemoryExists
		}
	}
	memory.ID = primitive.NewObjectID()
	f.memories[memory.ID] = cloneMemory(memory)
	f.creates.Add(1)
	return nil
}

func (f *fakeMemoryRepo) GetMemory(_ context.Context, userID, characterID uint64) (*mongo.Memory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.memories {
		if m.UserID == userID && m.CharacterID == characterID {
			return cloneMemory(m), nil
		}
	}
	return nil, nil
}

func (f *fakeMemoryRepo) GetMemoryByID(_ context.Context, id primitive.ObjectID) (*mongo.Memory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.memories[id]; ok {
		return cloneMemory(m), nil
	}
	return nil, nil
}

func (f *fakeMemoryRepo) ReplaceMessages(_ context.Context, id primitive.ObjectID, version int64, messages []mongo.MemoryMessage) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.memories[id]
	if !ok || m.Version != version {
		return false, nil
	}
	m.Messages = append([]mongo.MemoryMessage(nil), messages...)
	m.Version++
	return true, nil
}

func (f *fakeMemoryRepo) DeleteByCharacter(_ context.Context, characterID uint64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, m := range f.memories {
		if m.CharacterID == characterID {
			delete(f.memories, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeMemoryRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.memories)
}

func cloneMemory(m *mongo.Memory) *mongo.Memory {
	c := *m
	c.Messages = append([]mongo.MemoryMessage(nil), m.Messages...)
	return &c
}

type fakeNotificationRepo struct {
	mu    sync.Mutex
	items []*mongo.Notification
}

func (f *fakeNotificationRepo) AppendNotification(_ context.Context, n *mongo.Notification, capacity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n.ID = primitive.NewObjectID()
	f.items = append(f.items, n)

	var mine []*mongo.Notification
	for i := len(f.items) - 1; i >= 0; i-- {
		if f.items[i].ReceiverID == n.ReceiverID {
			mine = append(mine, f.items[i])
		}
	}
	evict := util.Overflow(mine, capacity)
	if len(evict) == 0 {
		return nil
	}
	kept := f.items[:0]
	for _, item := range f.items {
		drop := false
		for _, e := range evict {
			if e == item {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, item)
		}
	}
	f.items = kept
	return nil
}

func (f *fakeNotificationRepo) GetNotificationList(_ context.Context, userID uint64, limit, offset int64) ([]*mongo.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var mine []*mongo.Notification
	for i := len(f.items) - 1; i >= 0; i-- {
		if f.items[i].ReceiverID == userID {
			mine = append(mine, f.items[i])
		}
	}
	if offset >= int64(len(mine)) {
		return []*mongo.Notification{}, nil
	}
	end := offset + limit
	if end > int64(len(mine)) {
		end = int64(len(mine))
	}
	return mine[offset:end], nil
}

func (f *fakeNotificationRepo) MarkAsRead(_ context.Context, userID uint64, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.items {
		if n.ReceiverID == userID && n.ID.Hex() == id {
			n.IsRead = true
			return nil
		}
	}
	return mongo.ErrNotificationNotFound
}

func (f *fakeNotificationRepo) MarkAllAsRead(_ context.Context, userID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.items {
		if n.ReceiverID == userID {
			n.IsRead = true
		}
	}
	return nil
}

func (f *fakeNotificationRepo) GetUnreadCount(_ context.Context, userID uint64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, item := range f.items {
		if item.ReceiverID == userID && !item.IsRead {
			n++
		}
	}
	return n, nil
}

func (f *fakeNotificationRepo) byType(receiverID uint64, kind string) []*mongo.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*mongo.Notification
	for _, n := range f.items {
		if n.ReceiverID == receiverID && n.Type == kind {
			result = append(result, n)
		}
	}
	return result
}

// fakeStore 忽略过期时间的 KV
type fakeStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) SetWithExpiration(_ context.Context, key string, value any, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = fmt.Sprint(value)
	return nil
}

func (f *fakeStore) GetValue(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data[key], nil
}

func (f *fakeStore) DeleteKey(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeStore) IncrWithExpiration(_ context.Context, key string, _ time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, _ := strconv.ParseInt(f.data[key], 10, 64)
	n++
	f.data[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func (f *fakeStore) TryLock(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = fmt.Sprint(value)
	return true, nil
}

func (f *fakeStore) UnLock(_ context.Context, key string, value any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data[key] == fmt.Sprint(value) {
		delete(f.data, key)
	}
	return nil
}

type scheduledCall struct {
	At      time.Time
	JobName string
	Payload any
}

type fakeScheduler struct {
	mu    sync.Mutex
	calls []scheduledCall
}

func (f *fakeScheduler) Schedule(_ context.Context, at time.Time, jobName string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, scheduledCall{At: at, JobName: jobName, Payload: payload})
	return nil
}

func (f *fakeScheduler) jobs() []scheduledCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]scheduledCall(nil), f.calls...)
}

type fakeModerator struct {
	unsafe map[string]bool
	err    error
	calls  atomic.Int32
}

func (f *fakeModerator) ModerateText(_ context.Context, content string) (bool, error) {
	f.calls.Add(1)
	if f.err != nil {
		return false, f.err
	}
	return !f.unsafe[content], nil
}

func (f *fakeModerator) ModerateImage(context.Context, []byte, string) (bool, error) {
	f.calls.Add(1)
	if f.err != nil {
		return false, f.err
	}
	return true, nil
}

type fakeProvider struct {
	reply string
	err   error
	calls atomic.Int32
	last  atomic.Pointer[llm.Prompt]
}

func (f *fakeProvider) Generate(_ context.Context, prompt *llm.Prompt, _ string) (string, error) {
	f.calls.Add(1)
	f.last.Store(prompt)
	return f.reply, f.err
}

type fakeStorage struct {
	mu         sync.Mutex
	objects    map[string]bool
	failDelete map[string]bool
	seq        int
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string]bool), failDelete: make(map[string]bool)}
}

func (f *fakeStorage) Upload(_ context.Context, _ string, folder string) (*minio.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	id := fmt.Sprintf("%s/%d.jpg", folder, f.seq)
	f.objects[id] = true
	return &minio.UploadResult{URL: "http://cdn/" + id, PublicID: id}, nil
}

func (f *fakeStorage) Delete(_ context.Context, publicID string, _ string) (*minio.DeleteResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete[publicID] {
		return nil, fmt.Errorf("storage unavailable for %s", publicID)
	}
	if !f.objects[publicID] {
		return &minio.DeleteResult{Result: minio.ResultNotFound}, nil
	}
	delete(f.objects, publicID)
	return &minio.DeleteResult{Result: minio.ResultOK}, nil
}

func (f *fakeStorage) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type sentMail struct {
	To      string
	Subject string
	Text    string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (f *fakeMailer) Send(_ context.Context, to, subject, text, _ string) (*mail.SendInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{To: to, Subject: subject, Text: text})
	return &mail.SendInfo{ID: strconv.Itoa(len(f.sent))}, nil
}

func (f *fakeMailer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}
