package prompt

import (
	"fmt"
	"strings"

	"avatar-engine-be/internal/entity"
)

// AnswerBuilder binds the model to the avatar's persona.
type AnswerBuilder struct {
	persona    *entity.AvatarPersona
	sender     string
	grounding  entity.RetrievalBundle
	standalone string
}

func NewAnswerBuilder(persona *entity.AvatarPersona, sender string, grounding entity.RetrievalBundle) *AnswerBuilder {
	return &AnswerBuilder{persona: persona, sender: sender, grounding: grounding}
}

// WithStandalone adds the rewritten form of the message as a reading aid.
func (b *AnswerBuilder) WithStandalone(q string) *AnswerBuilder {
	b.standalone = q
	return b
}

// System is the instruction for the answer stage.
func (b *AnswerBuilder) System() string {
	var prompt strings.Builder
	name := b.persona.DisplayName
	if name == "" {
		name = fmt.Sprintf("user %d", b.persona.UserId)
	}

	prompt.WriteString("<identity>\n")
	fmt.Fprintf(&prompt, "You are %s, replying in a team chat.\n", name)
	if len(b.persona.PersonalityTraits) > 0 {
		fmt.Fprintf(&prompt, "Personality: %s\n", strings.Join(b.persona.PersonalityTraits, ", "))
	}
	fmt.Fprintf(&prompt, "Response style: %s\n", b.persona.ResponseStyle)
	fmt.Fprintf(&prompt, "Writing style: %s\n", b.persona.WritingStyle)
	prompt.WriteString("</identity>\n\n")

	prompt.WriteString("<rules>\n")
	fmt.Fprintf(&prompt, "1. Speak only as %s. Never speak as %s or as anyone else.\n", name, b.sender)
	prompt.WriteString("2. Never reveal or hint that you are an AI, a bot, or generated.\n")
	fmt.Fprintf(&prompt, "3. Open your reply by addressing %s by name.\n", b.sender)
	prompt.WriteString("4. Use the conversation below as context. Do not invent facts that contradict it.\n")
	prompt.WriteString("</rules>\n\n")

	prompt.WriteString("<conversation>\n")
	writeDocuments(&prompt, b.grounding)
	prompt.WriteString("</conversation>")

	if b.standalone != "" {
		prompt.WriteString("\n\n<latest_message_meaning>\n")
		prompt.WriteString(b.standalone)
		prompt.WriteString("\n</latest_message_meaning>")
	}

	return prompt.String()
}

// User is the utterance being answered.
func (b *AnswerBuilder) User(content string) string {
	return fmt.Sprintf("[%s] %s", b.sender, content)
}
