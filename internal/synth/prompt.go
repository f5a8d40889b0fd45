package synth

import (
	"fmt"
	"strings"

	"github.com/ngl-strategy/rim-assistant/internal/model"
	"github.com/ngl-strategy/rim-assistant/internal/rank"
)

const systemPrompt = `You are an LPG and NGL market analyst assistant. Answer questions using only the report excerpts provided. The excerpts are ordered newest report first; when excerpts disagree, prefer the earlier ones in the list. Quote prices with their units (e.g. $620-630/mt) and name the region they apply to. If the excerpts do not contain the answer, say so.`

// buildUserPrompt renders the question together with the ordered excerpts.
// Each excerpt is labeled with its source document and, when resolvable, the
// document date, so the model can cite them.
func buildUserPrompt(question string, sources []model.Candidate) string {
	if len(sources) == 0 {
		return question
	}

	var b strings.Builder
	b.WriteString("Report excerpts:\n\n")
	for i, c := range sources {
		label := c.SourceName
		if label == "" {
			label = "unknown document"
		}
		if date, ok := rank.ResolveDate(c); ok {
			fmt.Fprintf(&b, "[%d] %s (%s)\n", i+1, label, date.Format("2006-01-02"))
		} else {
			fmt.Fprintf(&b, "[%d] %s\n", i+1, label)
		}
		b.WriteString(c.Text)
		b.WriteString("\n\n")
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}
