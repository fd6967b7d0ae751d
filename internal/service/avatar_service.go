package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"avatar-engine-be/internal/apperror"
	"avatar-engine-be/internal/dto"
	"avatar-engine-be/internal/entity"
	"avatar-engine-be/internal/mapper"
	"avatar-engine-be/internal/pkg/logger"
	"avatar-engine-be/internal/pkg/serverutils"
	"avatar-engine-be/pkg/conversation"
	"avatar-engine-be/pkg/rag/chain"
)

// PersonaProvider resolves the persona the avatar speaks with.
type PersonaProvider interface {
	GetOrCreate(ctx context.Context, userId int64) (*entity.AvatarPersona, error)
	Refresh(ctx context.Context, userId int64) (*entity.AvatarPersona, error)
}

type WindowPlanner interface {
	Plan(ctx context.Context, msg *entity.Message, persona *entity.AvatarPersona, conversationKey string) (entity.ContextWindowPlan, error)
}

type ContextRetriever interface {
	Retrieve(ctx context.Context, msg *entity.Message, plan entity.ContextWindowPlan, conversationKey string) (entity.RetrievalBundle, error)
}

type ReplyGenerator interface {
	Run(ctx context.Context, in chain.Input) (string, error)
}

type IAvatarService interface {
	GenerateResponse(ctx context.Context, avatarUserId int64, msg *entity.Message) (string, error)
	Respond(ctx context.Context, req *dto.RespondRequest) (*dto.RespondResponse, error)
	GetPersona(ctx context.Context, userId int64) (*dto.PersonaResponse, error)
	RefreshPersona(ctx context.Context, userId int64) (*dto.PersonaResponse, error)
}

type avatarService struct {
	personas  PersonaProvider
	planner   WindowPlanner
	retriever ContextRetriever
	generator ReplyGenerator
	logger    logger.ILogger
	timeout   time.Duration

	messageMapper *mapper.MessageMapper
	personaMapper *mapper.PersonaMapper
}

// NewAvatarService wires the reply pipeline. A positive timeout bounds each
// GenerateResponse call; exceeding it is reported as a GenerationError.
func NewAvatarService(
	personas PersonaProvider,
	planner WindowPlanner,
	retriever ContextRetriever,
	generator ReplyGenerator,
	l logger.ILogger,
	timeout time.Duration,
) IAvatarService {
	return &avatarService{
		personas:      personas,
		planner:       planner,
		retriever:     retriever,
		generator:     generator,
		logger:        l,
		timeout:       timeout,
		messageMapper: mapper.NewMessageMapper(),
		personaMapper: mapper.NewPersonaMapper(),
	}
}

func (s *avatarService) GenerateResponse(ctx context.Context, avatarUserId int64, msg *entity.Message) (string, error) {
	sender, err := validateIdentity(avatarUserId, msg)
	if err != nil {
		return "", err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	reply, err := s.generate(ctx, avatarUserId, msg, sender)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil {
			err = apperror.NewGenerationError("timeout", err)
		}
		s.logger.Error("AVATAR", "Reply generation failed", map[string]interface{}{
			"avatar_user_id": avatarUserId,
			"message_id":     msg.Id,
			"error":          err.Error(),
		})
		return "", err
	}

	s.logger.Info("AVATAR", "Reply generated", map[string]interface{}{
		"avatar_user_id": avatarUserId,
		"message_id":     msg.Id,
		"duration_ms":    time.Since(start).Milliseconds(),
	})
	return reply, nil
}

// generate runs the stages in order. Stage errors are already typed and are
// returned as they are.
func (s *avatarService) generate(ctx context.Context, avatarUserId int64, msg *entity.Message, sender entity.Participant) (string, error) {
	persona, err := s.personas.GetOrCreate(ctx, avatarUserId)
	if err != nil {
		return "", err
	}
	if persona.DisplayName == "" {
		if dm, ok := msg.Target.(entity.DirectTarget); ok {
			persona.DisplayName = dm.To.DisplayName
		}
	}

	key, err := conversation.KeyFor(msg.Target)
	if err != nil {
		return "", apperror.NewValidationError("target", err.Error())
	}

	plan, err := s.planner.Plan(ctx, msg, persona, key)
	if err != nil {
		return "", err
	}

	bundle, err := s.retriever.Retrieve(ctx, msg, plan, key)
	if err != nil {
		return "", err
	}

	reply, err := s.generator.Run(ctx, chain.Input{
		Persona: persona,
		Sender:  sender.DisplayName,
		Content: msg.Content,
		Bundle:  bundle,
	})
	if err != nil {
		return "", err
	}
	return reply, nil
}

// validateIdentity checks the message carries a named sender and, for direct
// messages, that it is addressed to the avatar.
func validateIdentity(avatarUserId int64, msg *entity.Message) (entity.Participant, error) {
	if msg == nil {
		return entity.Participant{}, apperror.NewValidationError("message", "is required")
	}

	switch t := msg.Target.(type) {
	case entity.ChannelTarget:
		if t.Author.DisplayName == "" {
			return entity.Participant{}, apperror.NewValidationError("author.display_name", "is required")
		}
		return t.Author, nil
	case entity.DirectTarget:
		if t.From.DisplayName == "" {
			return entity.Participant{}, apperror.NewValidationError("author.display_name", "is required")
		}
		if t.To.DisplayName == "" {
			return entity.Participant{}, apperror.NewValidationError("recipient.display_name", "is required")
		}
		if t.To.Id != avatarUserId {
			return entity.Participant{}, apperror.NewValidationError("recipient.id",
				fmt.Sprintf("direct message is addressed to user %d, not avatar %d", t.To.Id, avatarUserId))
		}
		return t.From, nil
	default:
		return entity.Participant{}, apperror.NewValidationError("target", "message has no channel or recipient")
	}
}

func (s *avatarService) Respond(ctx context.Context, req *dto.RespondRequest) (*dto.RespondResponse, error) {
	if err := serverutils.ValidateRequest(req); err != nil {
		return nil, err
	}
	msg, err := s.messageMapper.FromRequest(&req.Message)
	if err != nil {
		return nil, apperror.NewValidationError("message", err.Error())
	}

	reply, err := s.GenerateResponse(ctx, req.AvatarUserId, msg)
	if err != nil {
		return nil, err
	}
	return &dto.RespondResponse{Reply: reply}, nil
}

func (s *avatarService) GetPersona(ctx context.Context, userId int64) (*dto.PersonaResponse, error) {
	if userId <= 0 {
		return nil, apperror.NewValidationError("userId", "must be positive")
	}
	p, err := s.personas.GetOrCreate(ctx, userId)
	if err != nil {
		return nil, err
	}
	return s.personaMapper.ToResponse(p), nil
}

func (s *avatarService) RefreshPersona(ctx context.Context, userId int64) (*dto.PersonaResponse, error) {
	if userId <= 0 {
		return nil, apperror.NewValidationError("userId", "must be positive")
	}
	p, err := s.personas.Refresh(ctx, userId)
	if err != nil {
		return nil, err
	}

	s.logger.Info("AVATAR", "Persona refreshed", map[string]interface{}{"user_id": userId})
	return s.personaMapper.ToResponse(p), nil
}
