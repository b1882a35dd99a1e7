package llm

import (
	"Sodium/internal/model"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type fakeProvider struct {
	text  string
	err   error
	calls int
}

func (f *fakeProvider) Generate(_ context.Context, _ *Prompt, _ string) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakeModel struct {
	answer   string
	err      error
	messages []llms.MessageContent
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.answer}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func samplePersona() Persona {
	return Persona{
		Name:        "Luna",
		Gender:      "female",
		Personality: "curious and warm",
		Opening:     "Hello, traveler.",
	}
}

func TestDispatch_RoutesByPrefix(t *testing.T) {
	openai := &fakeProvider{text: "from openai"}
	gemini := &fakeProvider{text: "from gemini"}
	d := NewDispatcher(openai).Route(GeminiPrefix, gemini)

	text, err := d.Dispatch(context.Background(), &Prompt{}, "gemini-2.5-pro")
	require.NoError(t, err)
	assert.Equal(t, "from gemini", text)

	text, err = d.Dispatch(context.Background(), &Prompt{}, "gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, "from openai", text)
	assert.Equal(t, 1, openai.calls)
	assert.Equal(t, 1, gemini.calls)
}

func TestDispatch_FailureTaxonomy(t *testing.T) {
	cases := []struct {
		name string
		p    *fakeProvider
		want error
	}{
		{"gemini exhausted", &fakeProvider{err: errors.New("googleapi: Error 429: RESOURCE_EXHAUSTED")}, ErrQuotaExceeded},
		{"openai quota", &fakeProvider{err: errors.New("API returned unexpected status code: insufficient_quota")}, ErrQuotaExceeded},
		{"openai status 429", &fakeProvider{err: errors.New("API returned unexpected status code: 429: Rate limit reached")}, ErrQuotaExceeded},
		{"structured rate limit", &fakeProvider{err: llms.NewError(llms.ErrCodeRateLimit, "openai", "slow down")}, ErrQuotaExceeded},
		{"429 inside request id", &fakeProvider{err: errors.New("invalid json at offset 4291, request id req_429abc")}, ErrDispatch},
		{"quota word only", &fakeProvider{err: errors.New("unexpected field quota_hint in response")}, ErrDispatch},
		{"generic", &fakeProvider{err: errors.New("connection reset")}, ErrDispatch},
		{"empty text", &fakeProvider{text: "   "}, ErrDispatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewDispatcher(tc.p).Dispatch(context.Background(), &Prompt{}, "gpt-4o")
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestMemoryLimit_UnknownModelFails(t *testing.T) {
	limit, err := MemoryLimit("gpt-4")
	require.NoError(t, err)
	assert.Equal(t, 24, limit)

	_, err = MemoryLimit("claude-x")
	require.ErrorIs(t, err, ErrModelNotConfigured)
}

func TestCanUseModel(t *testing.T) {
	free := &model.User{Role: model.RoleUser}
	paid := &model.User{Role: model.RoleUser, IsPaid: true}
	admin := &model.User{Role: model.RoleAdmin}

	assert.False(t, CanUseModel(nil, "gpt-4"))
	assert.False(t, CanUseModel(free, "gpt-4o-mini"))
	assert.True(t, CanUseModel(paid, "gpt-4"))
	assert.True(t, CanUseModel(admin, "gpt-4.1"))
	assert.True(t, CanUseModel(nil, "gemini-2.0-flash"))
}

func TestCompose_OpeningWithoutHistory(t *testing.T) {
	c, err := NewComposer()
	require.NoError(t, err)

	p, err := c.Compose(samplePersona(), StyleRoleplay, nil, "hi there")
	require.NoError(t, err)

	contents := p.Contents()
	assert.Contains(t, contents, "Hello, traveler.")
	assert.True(t, strings.HasSuffix(contents, "hi there"))
	assert.NotContains(t, contents, "Conversation so far")
	assert.Contains(t, p.Instructions(), "role-play")
}

func TestCompose_HistoryReplacesOpening(t *testing.T) {
	c, err := NewComposer()
	require.NoError(t, err)

	history := []HistoryMessage{
		{Sender: "character", Content: "Hello, traveler."},
		{Sender: "user", Content: "who are you?"},
		{Sender: "character", Content: "A keeper of stars."},
	}
	p, err := c.Compose(samplePersona(), StyleProfessional, history, "tell me more")
	require.NoError(t, err)

	contents := p.Contents()
	assert.Contains(t, contents, "User: who are you?")
	assert.Contains(t, contents, "Luna: A keeper of stars.")
	assert.NotContains(t, contents, "You opened the conversation with")
	assert.Contains(t, p.Instructions(), "professional")
}

func TestCompose_TraitsOnlyWhenSet(t *testing.T) {
	c, err := NewComposer()
	require.NoError(t, err)

	persona := samplePersona()
	persona.MBTI = "INFJ"
	persona.Zodiac = "Pisces"
	p, err := c.Compose(persona, StyleRoleplay, nil, "hey")
	require.NoError(t, err)

	instructions := p.Instructions()
	assert.Contains(t, instructions, "INFJ")
	assert.Contains(t, instructions, "Pisces")
	assert.NotContains(t, instructions, "Enneagram")
	assert.NotContains(t, instructions, "attachment style")
	assert.Contains(t, instructions, "100 words")
}

func TestCompose_Deterministic(t *testing.T) {
	c, err := NewComposer()
	require.NoError(t, err)

	a, err := c.Compose(samplePersona(), StyleRoleplay, nil, "same")
	require.NoError(t, err)
	b, err := c.Compose(samplePersona(), StyleRoleplay, nil, "same")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, err = c.Compose(samplePersona(), "poetic", nil, "same")
	require.Error(t, err)
}

func TestModerateText_Verdicts(t *testing.T) {
	cases := []struct {
		answer string
		err    error
		safe   bool
		hasErr bool
	}{
		{answer: "SAFE", safe: true},
		{answer: " unsafe.", safe: false},
		{answer: "maybe", safe: false, hasErr: true},
		{err: errors.New("timeout"), safe: false, hasErr: true},
	}
	for _, tc := range cases {
		m, err := NewModerator(&fakeModel{answer: tc.answer, err: tc.err}, "text", "vision")
		require.NoError(t, err)

		safe, err := m.ModerateText(context.Background(), "some content")
		assert.Equal(t, tc.safe, safe, tc.answer)
		assert.Equal(t, tc.hasErr, err != nil, tc.answer)
	}
}

func TestModerateImage_SendsBinaryPart(t *testing.T) {
	fm := &fakeModel{answer: "SAFE"}
	m, err := NewModerator(fm, "text", "vision")
	require.NoError(t, err)

	safe, err := m.ModerateImage(context.Background(), []byte{0xff, 0xd8}, "image/jpeg")
	require.NoError(t, err)
	assert.True(t, safe)

	require.Len(t, fm.messages, 2)
	part, ok := fm.messages[1].Parts[0].(llms.BinaryContent)
	require.True(t, ok)
	assert.Equal(t, "image/jpeg", part.MIMEType)
}
