package prompt

import (
	"strings"

	"avatar-engine-be/internal/entity"
)

// RewriteSystem instructs the model to reformulate, never answer.
const RewriteSystem = "Given the chat history and the latest message, rewrite the latest message " +
	"as a standalone message that can be understood without the history. " +
	"Resolve pronouns and references using the history. " +
	"Do NOT answer it. Return only the rewritten message."

// RewriteBuilder frames the latest message against the conversation so far.
type RewriteBuilder struct {
	history entity.RetrievalBundle
	sender  string
	latest  string
}

func NewRewriteBuilder(history entity.RetrievalBundle, sender, latest string) *RewriteBuilder {
	return &RewriteBuilder{history: history, sender: sender, latest: latest}
}

func (b *RewriteBuilder) Build() string {
	var prompt strings.Builder

	prompt.WriteString("<chat_history>\n")
	writeDocuments(&prompt, b.history)
	prompt.WriteString("</chat_history>\n\n")

	prompt.WriteString("<latest_message>\n[")
	prompt.WriteString(b.sender)
	prompt.WriteString("] ")
	prompt.WriteString(b.latest)
	prompt.WriteString("\n</latest_message>\n\n")
	prompt.WriteString("Standalone message:")

	return prompt.String()
}

func writeDocuments(prompt *strings.Builder, docs entity.RetrievalBundle) {
	if len(docs) == 0 {
		prompt.WriteString("(empty)\n")
		return
	}
	for _, doc := range docs {
		prompt.WriteString(doc.Time().UTC().Format("2006-01-02 15:04"))
		prompt.WriteString(" ")
		prompt.WriteString(doc.Content)
		prompt.WriteString("\n")
	}
}
