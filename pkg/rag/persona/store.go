package persona

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"avatar-engine-be/internal/apperror"
	"avatar-engine-be/internal/entity"
	"avatar-engine-be/internal/pkg/logger"
	"avatar-engine-be/internal/repository/contract"
	"avatar-engine-be/internal/repository/specification"
	"avatar-engine-be/pkg/llm"
	"avatar-engine-be/pkg/rag/prompt"
	"avatar-engine-be/pkg/store"

	"golang.org/x/sync/singleflight"
)

const module = "PERSONA"

// Config tunes persona derivation.
type Config struct {
	HistoryLimit int
	// LockTTL bounds how long another process may hold the derivation lock
	// before this one derives on its own.
	LockTTL      time.Duration
	PollInterval time.Duration
	// DeriveTimeout bounds one shared derivation independently of the
	// callers waiting on it. Zero means twice LockTTL.
	DeriveTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		HistoryLimit: 100,
		LockTTL:      30 * time.Second,
		PollInterval: 500 * time.Millisecond,
	}
}

// analysis is the structured output requested from the model.
type analysis struct {
	PersonalityTraits []string `json:"personalityTraits" jsonschema:"description=Short personality traits"`
	ResponseStyle     string   `json:"responseStyle" jsonschema:"description=How the person usually responds"`
	WritingStyle      string   `json:"writingStyle" jsonschema:"description=How the person writes"`
}

// Store derives personas and caches them in the vector store under
// avatar-config-<userId>.
type Store struct {
	store    store.VectorStore
	profiles contract.UserProfileRepository
	llm      llm.LLMProvider
	logger   logger.ILogger
	locker   Locker
	cfg      Config
	schema   json.RawMessage
	group    singleflight.Group
}

type Option func(*Store)

// WithLocker serializes derivation across processes.
func WithLocker(l Locker) Option {
	return func(s *Store) {
		s.locker = l
	}
}

func NewStore(vs store.VectorStore, profiles contract.UserProfileRepository, provider llm.LLMProvider, l logger.ILogger, cfg Config, opts ...Option) *Store {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultConfig().HistoryLimit
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultConfig().LockTTL
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	if cfg.DeriveTimeout <= 0 {
		// room to wait out a peer's lock and then derive
		cfg.DeriveTimeout = 2 * cfg.LockTTL
	}

	s := &Store{
		store:    vs,
		profiles: profiles,
		llm:      provider,
		logger:   l,
		cfg:      cfg,
	}
	for _, opt := range opts {
		opt(s)
	}

	schema, err := llm.SchemaFor(&analysis{})
	if err != nil {
		l.Warn(module, "Persona schema unavailable, using plain JSON mode", map[string]interface{}{"error": err.Error()})
	}
	s.schema = schema
	return s
}

// GetOrCreate returns the cached persona or derives and caches a new one.
func (s *Store) GetOrCreate(ctx context.Context, userId int64) (*entity.AvatarPersona, error) {
	if p, err := s.cached(ctx, userId); err != nil || p != nil {
		return p, err
	}

	p, shared, err := s.joinDerivation(ctx, fmt.Sprintf("get:%d", userId), userId, false)
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug(module, "Joined in-flight persona derivation", map[string]interface{}{"user_id": userId})
	}
	return p, nil
}

// Refresh re-derives the persona and overwrites the cached document.
func (s *Store) Refresh(ctx context.Context, userId int64) (*entity.AvatarPersona, error) {
	p, _, err := s.joinDerivation(ctx, fmt.Sprintf("refresh:%d", userId), userId, true)
	return p, err
}

// joinDerivation runs at most one derivation per key. The derivation is
// detached from the caller that started it and bounded by DeriveTimeout, so
// every caller waits on its own context only.
func (s *Store) joinDerivation(ctx context.Context, key string, userId int64, force bool) (*entity.AvatarPersona, bool, error) {
	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (interface{}, error) {
		deriveCtx, cancel := context.WithTimeout(detached, s.cfg.DeriveTimeout)
		defer cancel()
		return s.deriveExclusive(deriveCtx, userId, force)
	})

	select {
	case <-ctx.Done():
		return nil, false, apperror.NewRetrievalError("persona wait", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Shared, res.Err
		}
		return clonePersona(res.Val.(*entity.AvatarPersona)), res.Shared, nil
	}
}

// cached returns nil, nil when there is no usable persona document.
func (s *Store) cached(ctx context.Context, userId int64) (*entity.AvatarPersona, error) {
	doc, err := s.store.Get(ctx, entity.PersonaDocumentID(userId))
	if err != nil {
		return nil, apperror.NewRetrievalError("persona lookup", err)
	}
	if doc == nil {
		return nil, nil
	}

	var p entity.AvatarPersona
	if err := json.Unmarshal([]byte(doc.Metadata.Config), &p); err != nil {
		s.logger.Warn(module, "Cached persona is unreadable, deriving again", map[string]interface{}{
			"user_id": userId,
			"error":   err.Error(),
		})
		return nil, nil
	}
	p.UserId = userId
	p.ApplyDefaults()
	return &p, nil
}

func (s *Store) deriveExclusive(ctx context.Context, userId int64, force bool) (*entity.AvatarPersona, error) {
	if s.locker == nil {
		return s.derive(ctx, userId)
	}

	startedAt := time.Now()
	lockKey := fmt.Sprintf("avatar:persona:lock:%d", userId)
	release, acquired, err := s.locker.TryLock(ctx, lockKey, s.cfg.LockTTL)
	if err != nil {
		s.logger.Warn(module, "Persona lock unavailable, deriving without it", map[string]interface{}{
			"user_id": userId,
			"error":   err.Error(),
		})
		return s.derive(ctx, userId)
	}
	if acquired {
		defer release()
		if !force {
			// another process may have finished between our lookup and the lock
			if p, err := s.cached(ctx, userId); err != nil || p != nil {
				return p, err
			}
		}
		return s.derive(ctx, userId)
	}

	p, err := s.awaitPeer(ctx, userId, force, startedAt)
	if err != nil || p != nil {
		return p, err
	}
	s.logger.Warn(module, "Timed out waiting for persona derivation in another process", map[string]interface{}{
		"user_id": userId,
	})
	return s.derive(ctx, userId)
}

// awaitPeer polls until a persona written by the lock holder appears or the
// lock TTL runs out. A forced refresh only accepts documents written after
// it started.
func (s *Store) awaitPeer(ctx context.Context, userId int64, force bool, startedAt time.Time) (*entity.AvatarPersona, error) {
	deadline := time.NewTimer(s.cfg.LockTTL)
	defer deadline.Stop()
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, apperror.NewRetrievalError("persona wait", ctx.Err())
		case <-deadline.C:
			return nil, nil
		case <-ticker.C:
			doc, err := s.store.Get(ctx, entity.PersonaDocumentID(userId))
			if err != nil {
				return nil, apperror.NewRetrievalError("persona lookup", err)
			}
			if doc == nil || (force && doc.UpdatedAt.Before(startedAt)) {
				continue
			}
			if p, err := s.cached(ctx, userId); err != nil || p != nil {
				return p, err
			}
		}
	}
}

func (s *Store) derive(ctx context.Context, userId int64) (*entity.AvatarPersona, error) {
	profile, err := s.profiles.GetProfile(ctx, userId)
	if err != nil {
		return nil, apperror.NewRetrievalError("user profile", err)
	}
	if profile == nil {
		s.logger.Warn(module, "User profile not found, deriving from messages only", map[string]interface{}{"user_id": userId})
		profile = &entity.UserProfile{Id: userId}
	}

	history, err := s.store.Query(ctx, "", s.cfg.HistoryLimit,
		specification.ByKind{Kind: entity.DocumentKindMessage},
		specification.ByAuthor{AuthorId: userId},
	)
	if err != nil {
		return nil, apperror.NewRetrievalError("persona history", err)
	}

	builder := prompt.NewPersonaAnalysisBuilder(profile, history)
	opts := []llm.Option{llm.WithTemperature(0.2)}
	if s.schema != nil {
		opts = append(opts, llm.WithJSONSchema("persona_analysis", s.schema))
	}
	raw, err := s.llm.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: builder.System()},
		{Role: llm.RoleUser, Content: builder.Build()},
	}, opts...)
	if err != nil {
		return nil, apperror.NewGenerationError("persona analysis", err)
	}

	p := &entity.AvatarPersona{UserId: userId, DisplayName: profile.DisplayName}
	parsed, parseErr := parseAnalysis(userId, raw)
	if parseErr != nil {
		s.logger.Warn(module, "Persona analysis unusable, applying defaults", map[string]interface{}{
			"user_id": userId,
			"error":   parseErr.Error(),
		})
	}
	if parsed != nil {
		p.PersonalityTraits = parsed.PersonalityTraits
		p.ResponseStyle = parsed.ResponseStyle
		p.WritingStyle = parsed.WritingStyle
	}
	p.MessageFrequency = frequencyOf(history)
	p.ApplyDefaults()

	if err := s.save(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info(module, "Persona derived", map[string]interface{}{
		"user_id":        userId,
		"history_size":   len(history),
		"response_style": p.ResponseStyle,
		"writing_style":  p.WritingStyle,
	})
	return p, nil
}

func (s *Store) save(ctx context.Context, p *entity.AvatarPersona) error {
	data, err := json.Marshal(p)
	if err != nil {
		return apperror.NewRetrievalError("persona save", err)
	}

	doc := &entity.IndexedDocument{
		Id:      entity.PersonaDocumentID(p.UserId),
		Kind:    entity.DocumentKindPersona,
		Content: string(data),
		Metadata: entity.DocumentMetadata{
			AuthorId:   p.UserId,
			AuthorName: p.DisplayName,
			Timestamp:  time.Now().Unix(),
			Config:     string(data),
		},
	}
	if err := s.store.Upsert(ctx, []*entity.IndexedDocument{doc}); err != nil {
		return apperror.NewRetrievalError("persona save", err)
	}
	return nil
}

// parseAnalysis returns whatever fields could be read. A PersonaParseError
// is returned alongside when the output is malformed or incomplete.
func parseAnalysis(userId int64, raw string) (*analysis, error) {
	cleaned := stripCodeFence(raw)

	var a analysis
	if err := json.Unmarshal([]byte(cleaned), &a); err != nil {
		return nil, &apperror.PersonaParseError{UserId: userId, Raw: raw, Err: err}
	}

	var missing []string
	if a.PersonalityTraits == nil {
		missing = append(missing, "personalityTraits")
	}
	if a.ResponseStyle == "" {
		missing = append(missing, "responseStyle")
	}
	if a.WritingStyle == "" {
		missing = append(missing, "writingStyle")
	}
	if len(missing) > 0 {
		return &a, &apperror.PersonaParseError{
			UserId: userId,
			Raw:    raw,
			Err:    fmt.Errorf("missing fields: %s", strings.Join(missing, ", ")),
		}
	}
	return &a, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// frequencyOf averages messages per day over the observed span, counting
// at least one day.
func frequencyOf(history []*entity.IndexedDocument) *entity.MessageFrequency {
	if len(history) == 0 {
		return nil
	}

	oldest, newest := history[0].Metadata.Timestamp, history[0].Metadata.Timestamp
	for _, doc := range history[1:] {
		oldest = min(oldest, doc.Metadata.Timestamp)
		newest = max(newest, doc.Metadata.Timestamp)
	}

	days := math.Max(1, float64(newest-oldest)/(24*60*60))
	return &entity.MessageFrequency{
		AverageMessagesPerDay: float64(len(history)) / days,
		LastActive:            newest,
	}
}

func clonePersona(p *entity.AvatarPersona) *entity.AvatarPersona {
	if p == nil {
		return nil
	}
	c := *p
	c.PersonalityTraits = append([]string{}, p.PersonalityTraits...)
	if p.MessageFrequency != nil {
		f := *p.MessageFrequency
		c.MessageFrequency = &f
	}
	return &c
}
