package service

import (
	"Sodium/internal/pkg/llm"
	"Sodium/internal/pkg/mongo"
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateConcurrentFirstCallsCreateOneMemory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	creator := seedUser(t, env.db, "alice")
	fan := seedUser(t, env.db, "bobby")
	character := seedCharacter(t, env.db, creator.ID, "gemini-2.0-flash")

	const workers = 8
	ids := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			memory, err := env.memories.GetOrCreate(ctx, fan.ID, character)
			if assert.NoError(t, err) {
				ids[i] = memory.ID.Hex()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, env.memoryRepo.count())
	assert.EqualValues(t, 1, env.memoryRepo.creates.Load())
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}

	memory, err := env.memoryRepo.GetMemory(ctx, fan.ID, character.ID)
	require.NoError(t, err)
	require.Len(t, memory.Messages, 1)
	assert.Equal(t, mongo.SenderCharacter, memory.Messages[0].Sender)
	assert.Equal(t, character.Opening, memory.Messages[0].Content)
}

func TestAppendExchangeEvictsOldestBeyondWindow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	messages := make([]mongo.MemoryMessage, 0, MemoryWindow)
	for i := 0; i < MemoryWindow; i++ {
		messages = append(messages, NewMessage(mongo.SenderUser, fmt.Sprintf("m%d", i), env.now))
	}
	memory := &mongo.Memory{UserID: 1, CharacterID: 2, Messages: messages}
	require.NoError(t, env.memoryRepo.CreateMemory(ctx, memory))

	userMsg := NewMessage(mongo.SenderUser, "new question", env.now)
	reply := NewMessage(mongo.SenderCharacter, "new answer", env.now)
	require.NoError(t, env.memories.AppendExchange(ctx, memory.ID, userMsg, reply))

	stored, err := env.memoryRepo.GetMemoryByID(ctx, memory.ID)
	require.NoError(t, err)
	require.Len(t, stored.Messages, MemoryWindow)
	assert.Equal(t, "m2", stored.Messages[0].Content)
	assert.Equal(t, "new question", stored.Messages[MemoryWindow-2].Content)
	assert.Equal(t, "new answer", stored.Messages[MemoryWindow-1].Content)
	assert.EqualValues(t, 1, stored.Version)
}

func TestAppendExchangeSmallLogGrowsByTwo(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	memory := &mongo.Memory{UserID: 1, CharacterID: 2, Messages: []mongo.MemoryMessage{NewMessage(mongo.SenderCharacter, "hi", env.now)}}
	require.NoError(t, env.memoryRepo.CreateMemory(ctx, memory))

	require.NoError(t, env.memories.AppendExchange(ctx, memory.ID,
		NewMessage(mongo.SenderUser, "q", env.now),
		NewMessage(mongo.SenderCharacter, "a", env.now)))

	stored, err := env.memoryRepo.GetMemoryByID(ctx, memory.ID)
	require.NoError(t, err)
	require.Len(t, stored.Messages, 3)
	assert.NotEqual(t, stored.Messages[1].ID, stored.Messages[2].ID)
}

func TestGetRecentMessagesUsesModelBudget(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	messages := make([]mongo.MemoryMessage, 0, 30)
	for i := 0; i < 30; i++ {
		messages = append(messages, NewMessage(mongo.SenderUser, fmt.Sprintf("m%d", i), env.now))
	}
	require.NoError(t, env.memoryRepo.CreateMemory(ctx, &mongo.Memory{UserID: 1, CharacterID: 2, Messages: messages}))

	recent, err := env.memories.GetRecentMessages(ctx, 1, 2, "gemini-2.0-flash")
	require.NoError(t, err)
	require.Len(t, recent, 20)
	assert.Equal(t, "m10", recent[0].Content)
	assert.Equal(t, "m29", recent[19].Content)

	recent, err = env.memories.GetRecentMessages(ctx, 1, 2, "gpt-4.1")
	require.NoError(t, err)
	assert.Len(t, recent, 30)

	_, err = env.memories.GetRecentMessages(ctx, 1, 2, "unknown-model")
	assert.ErrorIs(t, err, llm.ErrModelNotConfigured)
}

func TestResetMemoryLeavesOnlyOpening(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	creator := seedUser(t, env.db, "alice")
	character := seedCharacter(t, env.db, creator.ID, "gemini-2.0-flash")

	err := env.memories.ResetMemory(ctx, creator.ID, character.ID)
	assert.ErrorIs(t, err, ErrMemoryNotFound)

	memory, err := env.memories.GetOrCreate(ctx, creator.ID, character)
	require.NoError(t, err)
	require.NoError(t, env.memories.AppendExchange(ctx, memory.ID,
		NewMessage(mongo.SenderUser, "q", env.now),
		NewMessage(mongo.SenderCharacter, "a", env.now)))

	require.NoError(t, env.memories.ResetMemory(ctx, creator.ID, character.ID))

	history, err := env.memories.GetHistory(ctx, creator.ID, character.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, character.Opening, history[0].Content)
	assert.Equal(t, mongo.SenderCharacter, history[0].Sender)
}

func TestGetHistoryWithoutConversationIsEmpty(t *testing.T) {
	env := newTestEnv(t)
	history, err := env.memories.GetHistory(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Empty(t, history)
}
