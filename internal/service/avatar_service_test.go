package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"avatar-engine-be/internal/apperror"
	"avatar-engine-be/internal/dto"
	"avatar-engine-be/internal/entity"
	"avatar-engine-be/internal/pkg/logger"
	"avatar-engine-be/internal/repository/memory"
	"avatar-engine-be/internal/testutil"
	"avatar-engine-be/pkg/llm"
	"avatar-engine-be/pkg/rag/chain"
	"avatar-engine-be/pkg/rag/persona"
	"avatar-engine-be/pkg/rag/retriever"
	"avatar-engine-be/pkg/rag/window"
	"avatar-engine-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// recordingGenerator runs the real chain and keeps the last input.
type recordingGenerator struct {
	mu    sync.Mutex
	inner ReplyGenerator
	last  chain.Input
}

func (g *recordingGenerator) Run(ctx context.Context, in chain.Input) (string, error) {
	g.mu.Lock()
	g.last = in
	g.mu.Unlock()
	return g.inner.Run(ctx, in)
}

type harness struct {
	store     store.VectorStore
	embedder  *testutil.Embedder
	model     *testutil.LLM
	profiles  *testutil.Profiles
	generator *recordingGenerator
	service   IAvatarService
}

// scriptedModel answers persona analysis with JSON, rewrites with a fixed
// standalone question and replies addressing the sender.
func scriptedModel() *testutil.LLM {
	return &testutil.LLM{
		Respond: func(history []llm.Message, opts *llm.Options) (string, error) {
			switch {
			case opts.JSONMode:
				return `{"personalityTraits":["helpful"],"responseStyle":"friendly","writingStyle":"short"}`, nil
			case opts.Temperature == 0:
				return "How is the deploy going?", nil
			default:
				return "Bo, the deploy is going fine.", nil
			}
		},
	}
}

func newHarness(t *testing.T, model *testutil.LLM, timeout time.Duration) *harness {
	t.Helper()
	clock := func() time.Time { return now }

	h := &harness{
		embedder: &testutil.Embedder{},
		model:    model,
		profiles: &testutil.Profiles{Profiles: map[int64]*entity.UserProfile{
			8: {Id: 8, DisplayName: "Ana", Title: "SRE"},
		}},
	}
	h.store = store.NewVectorStore(memory.NewDocumentRepository(), h.embedder)
	nop := logger.NewNopLogger()

	personas := persona.NewStore(h.store, h.profiles, h.model, nop, persona.DefaultConfig())
	planner := window.NewPlanner(h.store, window.DefaultThresholds(), nop, window.WithClock(clock))
	r := retriever.NewRetriever(h.store, nop, retriever.WithClock(clock))
	h.generator = &recordingGenerator{inner: chain.NewChain(h.model, h.embedder, nop, chain.DefaultConfig())}

	h.service = NewAvatarService(personas, planner, r, h.generator, nop, timeout)
	return h
}

func channelMessage(id int64, content string) *entity.Message {
	return &entity.Message{
		Id:        id,
		Content:   content,
		CreatedAt: now,
		Target: entity.ChannelTarget{
			ChannelId: 42,
			Author:    entity.Participant{Id: 5, DisplayName: "Bo"},
		},
	}
}

func TestGenerateResponseValidation(t *testing.T) {
	tests := []struct {
		name  string
		msg   *entity.Message
		field string
	}{
		{
			name: "direct message to another user",
			msg: &entity.Message{Id: 1, Content: "hi", Target: entity.DirectTarget{
				From: entity.Participant{Id: 5, DisplayName: "Bo"},
				To:   entity.Participant{Id: 7, DisplayName: "Cy"},
			}},
			field: "recipient.id",
		},
		{
			name: "direct message without recipient name",
			msg: &entity.Message{Id: 2, Target: entity.DirectTarget{
				From: entity.Participant{Id: 5, DisplayName: "Bo"},
				To:   entity.Participant{Id: 8},
			}},
			field: "recipient.display_name",
		},
		{
			name: "channel message without author name",
			msg: &entity.Message{Id: 3, Target: entity.ChannelTarget{
				ChannelId: 1,
				Author:    entity.Participant{Id: 5},
			}},
			field: "author.display_name",
		},
		{name: "no target", msg: &entity.Message{Id: 4}, field: "target"},
		{name: "nil message", msg: nil, field: "message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, scriptedModel(), 0)

			_, err := h.service.GenerateResponse(context.Background(), 8, tt.msg)

			var verr *apperror.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.field, verr.Field)
			assert.Zero(t, h.embedder.CallCount())
			assert.Zero(t, h.model.CallCount())
			assert.Zero(t, h.profiles.CallCount())
		})
	}
}

func TestGenerateResponseDirectMessage(t *testing.T) {
	h := newHarness(t, scriptedModel(), 0)

	msg := &entity.Message{
		Id:        100,
		Content:   "are you around?",
		CreatedAt: now,
		Target: entity.DirectTarget{
			From: entity.Participant{Id: 5, DisplayName: "Bo"},
			To:   entity.Participant{Id: 8, DisplayName: "Ana"},
		},
	}
	reply, err := h.service.GenerateResponse(context.Background(), 8, msg)
	require.NoError(t, err)
	assert.Equal(t, "Bo, the deploy is going fine.", reply)

	in := h.generator.last
	assert.Equal(t, "Bo", in.Sender)
	assert.Equal(t, "Ana", in.Persona.DisplayName)
	assert.Equal(t, []string{"helpful"}, in.Persona.PersonalityTraits)
}

// 1440 messages over the last 24 hours is 60 per hour. With no frequency
// stats the baseline is 100, so the plan is 75 messages over 12 hours.
func TestGenerateResponseBusyChannel(t *testing.T) {
	h := newHarness(t, scriptedModel(), 0)
	ctx := context.Background()

	docs := make([]*entity.IndexedDocument, 0, 1440)
	for i := 0; i < 1440; i++ {
		docs = append(docs, &entity.IndexedDocument{
			Id:      fmt.Sprintf("msg_%d", 10000+i),
			Kind:    entity.DocumentKindMessage,
			Content: fmt.Sprintf("[Cy] deploy update %d", i),
			Metadata: entity.DocumentMetadata{
				AuthorId:        9,
				AuthorName:      "Cy",
				Timestamp:       now.Add(-time.Duration(i) * time.Minute).Unix(),
				ConversationKey: "42",
			},
		})
	}
	require.NoError(t, h.store.Upsert(ctx, docs))

	reply, err := h.service.GenerateResponse(ctx, 8, channelMessage(20000, "how is the deploy going"))
	require.NoError(t, err)
	assert.Equal(t, "Bo, the deploy is going fine.", reply)

	in := h.generator.last
	assert.Nil(t, in.Persona.MessageFrequency)
	assert.Equal(t, 100, in.Persona.ContextWindow)

	cutoff := now.Add(-12 * time.Hour).Unix()
	require.GreaterOrEqual(t, len(in.Bundle), 75)
	seen := map[string]bool{}
	for _, doc := range in.Bundle {
		assert.GreaterOrEqual(t, doc.Metadata.Timestamp, cutoff, doc.Id)
		assert.False(t, seen[doc.Id], "duplicate %s", doc.Id)
		seen[doc.Id] = true
	}
	for i := 1; i < len(in.Bundle); i++ {
		assert.LessOrEqual(t, in.Bundle[i-1].Metadata.Timestamp, in.Bundle[i].Metadata.Timestamp)
	}
	// recency set is the newest 75
	for i := 0; i < 75; i++ {
		assert.True(t, seen[fmt.Sprintf("msg_%d", 10000+i)])
	}
}

func TestGenerateResponseInvalidPersonaJSONUsesDefaults(t *testing.T) {
	model := &testutil.LLM{
		Respond: func(history []llm.Message, opts *llm.Options) (string, error) {
			if opts.JSONMode {
				return "I think Ana is nice", nil
			}
			return "Bo, sure.", nil
		},
	}
	h := newHarness(t, model, 0)

	_, err := h.service.GenerateResponse(context.Background(), 8, channelMessage(1, "hey"))
	require.NoError(t, err)

	p := h.generator.last.Persona
	assert.Equal(t, entity.DefaultResponseStyle, p.ResponseStyle)
	assert.Equal(t, entity.DefaultWritingStyle, p.WritingStyle)
	assert.Empty(t, p.PersonalityTraits)
}

func TestGenerateResponsePropagatesFailures(t *testing.T) {
	t.Run("embedding outage", func(t *testing.T) {
		h := newHarness(t, scriptedModel(), 0)
		h.embedder.Err = errors.New("embedder down")

		_, err := h.service.GenerateResponse(context.Background(), 8, channelMessage(1, "hey"))
		// returned as is, not wrapped
		_, ok := err.(*apperror.RetrievalError)
		assert.True(t, ok, "got %T: %v", err, err)
	})

	t.Run("model outage", func(t *testing.T) {
		model := &testutil.LLM{Respond: func([]llm.Message, *llm.Options) (string, error) {
			return "", errors.New("model down")
		}}
		h := newHarness(t, model, 0)

		_, err := h.service.GenerateResponse(context.Background(), 8, channelMessage(1, "hey"))
		gerr, ok := err.(*apperror.GenerationError)
		require.True(t, ok, "got %T: %v", err, err)
		assert.Equal(t, "persona analysis", gerr.Stage)
		assert.Equal(t, 1, model.CallCount())
	})

	t.Run("timeout", func(t *testing.T) {
		model := &testutil.LLM{Respond: func(history []llm.Message, opts *llm.Options) (string, error) {
			if opts.JSONMode {
				return "{}", nil
			}
			time.Sleep(50 * time.Millisecond)
			return "", context.DeadlineExceeded
		}}
		h := newHarness(t, model, 10*time.Millisecond)

		_, err := h.service.GenerateResponse(context.Background(), 8, channelMessage(1, "hey"))
		var gerr *apperror.GenerationError
		require.True(t, errors.As(err, &gerr), "got %v", err)
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
	})
}

func TestRespondMapsRequest(t *testing.T) {
	h := newHarness(t, scriptedModel(), 0)
	channel := int64(42)

	res, err := h.service.Respond(context.Background(), &dto.RespondRequest{
		AvatarUserId: 8,
		Message: dto.MessageRequest{
			Id:        1,
			Content:   "hey",
			CreatedAt: now,
			ChannelId: &channel,
			Author:    dto.MessageParticipant{Id: 5, DisplayName: "Bo"},
		},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Reply, "Bo"))

	_, err = h.service.Respond(context.Background(), &dto.RespondRequest{Message: dto.MessageRequest{Id: 1}})
	var verr *apperror.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestPersonaEndpoints(t *testing.T) {
	h := newHarness(t, scriptedModel(), 0)
	ctx := context.Background()

	p, err := h.service.GetPersona(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, "Ana", p.DisplayName)
	assert.Equal(t, "friendly", p.ResponseStyle)
	assert.Equal(t, 1, h.model.CallCount())

	_, err = h.service.GetPersona(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, 1, h.model.CallCount())

	_, err = h.service.RefreshPersona(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, 2, h.model.CallCount())

	_, err = h.service.GetPersona(ctx, 0)
	var verr *apperror.ValidationError
	assert.True(t, errors.As(err, &verr))
}
