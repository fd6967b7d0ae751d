package prompt

import (
	"fmt"
	"strings"

	"avatar-engine-be/internal/entity"
)

// PersonaAnalysisBuilder asks the model to describe how a user writes.
type PersonaAnalysisBuilder struct {
	profile *entity.UserProfile
	history []*entity.IndexedDocument
}

func NewPersonaAnalysisBuilder(profile *entity.UserProfile, history []*entity.IndexedDocument) *PersonaAnalysisBuilder {
	return &PersonaAnalysisBuilder{profile: profile, history: history}
}

func (b *PersonaAnalysisBuilder) System() string {
	return "You analyze how a person communicates in a team chat. " +
		"Answer with a single JSON object and nothing else."
}

func (b *PersonaAnalysisBuilder) Build() string {
	var prompt strings.Builder

	prompt.WriteString("<profile>\n")
	if b.profile != nil {
		if b.profile.DisplayName != "" {
			fmt.Fprintf(&prompt, "Name: %s\n", b.profile.DisplayName)
		}
		if b.profile.Title != "" {
			fmt.Fprintf(&prompt, "Title: %s\n", b.profile.Title)
		}
		if b.profile.Bio != "" {
			fmt.Fprintf(&prompt, "Bio: %s\n", b.profile.Bio)
		}
	}
	prompt.WriteString("</profile>\n\n")

	prompt.WriteString("<messages>\n")
	if len(b.history) == 0 {
		prompt.WriteString("(no messages yet)\n")
	}
	for _, doc := range b.history {
		prompt.WriteString(doc.Content)
		prompt.WriteString("\n")
	}
	prompt.WriteString("</messages>\n\n")

	prompt.WriteString("<task>\n")
	prompt.WriteString("From the profile and messages above, return a JSON object with exactly these fields:\n")
	prompt.WriteString("- personalityTraits: list of short personality traits\n")
	prompt.WriteString("- responseStyle: how this person usually responds (e.g. casual, formal, playful)\n")
	prompt.WriteString("- writingStyle: how this person writes (e.g. concise, detailed, emoji-heavy)\n")
	prompt.WriteString("</task>")

	return prompt.String()
}
