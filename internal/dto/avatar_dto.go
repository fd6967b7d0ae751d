package dto

type RespondRequest struct {
	AvatarUserId int64          `json:"avatar_user_id" validate:"required"`
	Message      MessageRequest `json:"message"`
}

type RespondResponse struct {
	Reply string `json:"reply"`
}

type MessageFrequencyResponse struct {
	AverageMessagesPerDay float64 `json:"average_messages_per_day"`
	LastActive            int64   `json:"last_active"`
}

type PersonaResponse struct {
	UserId            int64                     `json:"user_id"`
	DisplayName       string                    `json:"display_name,omitempty"`
	PersonalityTraits []string                  `json:"personality_traits"`
	ResponseStyle     string                    `json:"response_style"`
	WritingStyle      string                    `json:"writing_style"`
	ContextWindow     int                       `json:"context_window"`
	MessageFrequency  *MessageFrequencyResponse `json:"message_frequency,omitempty"`
}
