package entity

import (
	"fmt"
	"time"
)

const (
	DefaultResponseStyle = "casual"
	DefaultWritingStyle  = "concise"
	DefaultContextWindow = 100
)

// MessageFrequency summarizes how often a user writes.
type MessageFrequency struct {
	AverageMessagesPerDay float64 `json:"averageMessagesPerDay"`
	LastActive            int64   `json:"lastActive"`
}

// AvatarPersona is the behavioral profile used to speak as a user.
type AvatarPersona struct {
	UserId            int64             `json:"userId"`
	DisplayName       string            `json:"displayName,omitempty"`
	PersonalityTraits []string          `json:"personalityTraits"`
	ResponseStyle     string            `json:"responseStyle"`
	WritingStyle      string            `json:"writingStyle"`
	ContextWindow     int               `json:"contextWindow"`
	MessageFrequency  *MessageFrequency `json:"messageFrequency,omitempty"`
}

// ApplyDefaults fills every missing field so that a persona built from
// partial or malformed model output is always usable.
func (p *AvatarPersona) ApplyDefaults() {
	if p.PersonalityTraits == nil {
		p.PersonalityTraits = []string{}
	}
	if p.ResponseStyle == "" {
		p.ResponseStyle = DefaultResponseStyle
	}
	if p.WritingStyle == "" {
		p.WritingStyle = DefaultWritingStyle
	}
	if p.ContextWindow <= 0 {
		p.ContextWindow = DefaultContextWindow
	}
}

// PersonaDocumentID is the vector store id of the cached persona for userId.
func PersonaDocumentID(userId int64) string {
	return fmt.Sprintf("avatar-config-%d", userId)
}

// UserProfile is the read-only profile served by the user store.
type UserProfile struct {
	Id          int64
	DisplayName string
	Title       string
	Bio         string
}

// ContextWindowPlan bounds the history retrieved for one reply.
type ContextWindowPlan struct {
	TimeWindow      time.Duration
	MessageLimit    int
	MessagesPerHour float64
}

// TimeWindowSeconds returns the window length in whole seconds.
func (p ContextWindowPlan) TimeWindowSeconds() int64 {
	return int64(p.TimeWindow / time.Second)
}
