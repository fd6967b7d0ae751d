package window

import (
	"context"
	"math"
	"time"

	"avatar-engine-be/internal/apperror"
	"avatar-engine-be/internal/entity"
	"avatar-engine-be/internal/pkg/logger"
	"avatar-engine-be/internal/repository/specification"
	"avatar-engine-be/pkg/store"
)

// Thresholds are the activity cut-offs (messages per hour) and the windows
// and limits they select.
type Thresholds struct {
	VeryHighActivity float64
	HighActivity     float64
	ModerateActivity float64
	LowActivity      float64

	VeryHighWindow time.Duration
	HighWindow     time.Duration
	ModerateWindow time.Duration
	LowWindow      time.Duration
	DormantWindow  time.Duration

	MinBaseline     int
	MaxBaseline     int
	BusyLimitCap    int
	QuietLimitFloor int

	// ActivityLookback is the span counted to measure activity.
	ActivityLookback time.Duration
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		VeryHighActivity: 50,
		HighActivity:     20,
		ModerateActivity: 5,
		LowActivity:      1,

		VeryHighWindow: 12 * time.Hour,
		HighWindow:     24 * time.Hour,
		ModerateWindow: 48 * time.Hour,
		LowWindow:      7 * 24 * time.Hour,
		DormantWindow:  30 * 24 * time.Hour,

		MinBaseline:     50,
		MaxBaseline:     200,
		BusyLimitCap:    75,
		QuietLimitFloor: 150,

		ActivityLookback: 24 * time.Hour,
	}
}

// PlanForActivity sizes the retrieval window for the given activity.
func (t Thresholds) PlanForActivity(messagesPerHour float64, persona *entity.AvatarPersona) entity.ContextWindowPlan {
	return entity.ContextWindowPlan{
		TimeWindow:      t.timeWindow(messagesPerHour),
		MessageLimit:    t.messageLimit(messagesPerHour, persona),
		MessagesPerHour: messagesPerHour,
	}
}

func (t Thresholds) timeWindow(mph float64) time.Duration {
	switch {
	case mph > t.VeryHighActivity:
		return t.VeryHighWindow
	case mph > t.HighActivity:
		return t.HighWindow
	case mph < t.LowActivity:
		return t.DormantWindow
	case mph < t.ModerateActivity:
		return t.LowWindow
	default:
		return t.ModerateWindow
	}
}

func (t Thresholds) messageLimit(mph float64, persona *entity.AvatarPersona) int {
	baseline := entity.DefaultContextWindow
	if persona != nil {
		if persona.MessageFrequency != nil {
			baseline = int(math.Floor(persona.MessageFrequency.AverageMessagesPerDay * 2))
			baseline = min(max(baseline, t.MinBaseline), t.MaxBaseline)
		} else if persona.ContextWindow > 0 {
			baseline = persona.ContextWindow
		}
	}

	switch {
	case mph > t.VeryHighActivity:
		return min(baseline, t.BusyLimitCap)
	case mph < t.LowActivity:
		return max(baseline, t.QuietLimitFloor)
	default:
		return baseline
	}
}

// PlanForActivity uses the default thresholds.
func PlanForActivity(messagesPerHour float64, persona *entity.AvatarPersona) entity.ContextWindowPlan {
	return DefaultThresholds().PlanForActivity(messagesPerHour, persona)
}

// Planner measures conversation activity and plans the retrieval window.
type Planner struct {
	store      store.VectorStore
	thresholds Thresholds
	logger     logger.ILogger
	now        func() time.Time
}

type Option func(*Planner)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Planner) {
		p.now = now
	}
}

func NewPlanner(vs store.VectorStore, thresholds Thresholds, l logger.ILogger, opts ...Option) *Planner {
	p := &Planner{
		store:      vs,
		thresholds: thresholds,
		logger:     l,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Plan counts messages in the conversation over the lookback span and sizes
// the window from the resulting hourly rate.
func (p *Planner) Plan(ctx context.Context, msg *entity.Message, persona *entity.AvatarPersona, conversationKey string) (entity.ContextWindowPlan, error) {
	lookback := p.thresholds.ActivityLookback
	if lookback <= 0 {
		lookback = 24 * time.Hour
	}
	since := p.now().Add(-lookback).Unix()

	count, err := p.store.Count(ctx,
		specification.ByKind{Kind: entity.DocumentKindMessage},
		specification.ByConversationKey{Key: conversationKey},
		specification.TimestampFrom{Since: since},
	)
	if err != nil {
		return entity.ContextWindowPlan{}, apperror.NewRetrievalError("activity count", err)
	}

	mph := float64(count) / lookback.Hours()
	plan := p.thresholds.PlanForActivity(mph, persona)

	p.logger.Debug("PLANNER", "Context window planned", map[string]interface{}{
		"message_id":        msg.Id,
		"conversation_key":  conversationKey,
		"messages_per_hour": mph,
		"window_seconds":    plan.TimeWindowSeconds(),
		"message_limit":     plan.MessageLimit,
	})
	return plan, nil
}
