package mapper

import (
	"avatar-engine-be/internal/dto"
	"avatar-engine-be/internal/entity"
)

type PersonaMapper struct{}

func NewPersonaMapper() *PersonaMapper {
	return &PersonaMapper{}
}

func (m *PersonaMapper) ToResponse(p *entity.AvatarPersona) *dto.PersonaResponse {
	if p == nil {
		return nil
	}

	res := &dto.PersonaResponse{
		UserId:            p.UserId,
		DisplayName:       p.DisplayName,
		PersonalityTraits: p.PersonalityTraits,
		ResponseStyle:     p.ResponseStyle,
		WritingStyle:      p.WritingStyle,
		ContextWindow:     p.ContextWindow,
	}
	if res.PersonalityTraits == nil {
		res.PersonalityTraits = []string{}
	}
	if p.MessageFrequency != nil {
		res.MessageFrequency = &dto.MessageFrequencyResponse{
			AverageMessagesPerDay: p.MessageFrequency.AverageMessagesPerDay,
			LastActive:            p.MessageFrequency.LastActive,
		}
	}
	return res
}
