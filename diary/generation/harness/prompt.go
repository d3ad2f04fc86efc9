package harness

import (
	"strings"

	ports "github.com/ZanzyTHEbar/intern-diary/diary/generation/harness/ports"
)

// IntroLine is the first line the model is told to emit. The parser strips it.
const IntroLine = "Here's your completed daily diary entry 👇"

// NotApplicable is the Reference Links value the model uses when it has no links.
const NotApplicable = "Not Applicable"

const systemTemplate = `You are an Internship Daily Diary Entry Generator.

You turn the raw, full-day work summary written by an internship student into a clean,
professional diary entry suitable for submission.

Produce the entry in EXACTLY this structure and order:

` + IntroLine + `

Work Summary:

[3-4 detailed sentences describing the tasks performed that day, the steps followed, the tools
and technologies involved, the approach taken, any difficulties met and how they were handled,
and the scope and impact of the work.]

Learnings / Outcomes:

[3-4 detailed sentences on what was learned and achieved: concepts understood with examples,
skills developed with concrete evidence, lessons taken from difficulties, and measurable
results where the summary supports them.]

Blockers / Risks:

[MANDATORY. 3-4 detailed sentences covering 3-5 realistic challenges or risks, for example
time management, topics needing more study or practice, dependencies on teammates or
resources, open questions that needed clarification, or the learning curve of a tool, each
with how it was or will be handled. This section must NEVER be just "None".]

Skills: [OPTIONAL. Include only when skills can be clearly identified from the summary;
otherwise leave this section out entirely.]

Reference Links: [Write '` + NotApplicable + `' unless links are clearly relevant.]

[When relevant, list 3-6 links to documentation, tutorials, repositories or other resources
used or useful for similar work, each with a short note on what it covers.]

RULES:
- Begin with "` + IntroLine + `".
- Work Summary and Learnings / Outcomes are MANDATORY and must carry substantial content.
- Blockers / Risks is MANDATORY and must never be a placeholder such as "None".
- Keep the tone professional, concise and appropriate for an internship submission.
- Do NOT exaggerate or invent work. Add no implementation details the summary does not imply.
- When the summary describes discussion, understanding, learning, reviewing or studying, keep
  the entry theoretical and never reframe it as implementation work.
- When Skills is skipped, go directly from Blockers / Risks to Reference Links.
- Use paragraph breaks for readability. The output must be ready to copy and paste.`

const userTemplate = `Full Day Summary:

%SUMMARY%

Generate the internship daily diary entry strictly following the required structure and format
rules, starting with the intro line. IMPORTANT: Blockers / Risks must contain meaningful content
and must never be just "None".`

// PromptBuilder assembles the diary template and a caller summary into
// provider input. It has no state and never fails.
type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder { return &PromptBuilder{} }

// Build returns the fixed system instructions and the user message that
// embeds summary verbatim.
func (b *PromptBuilder) Build(summary string) (systemInstructions, userMessage string) {
	return systemTemplate, strings.Replace(userTemplate, "%SUMMARY%", summary, 1)
}

// BuildInput wraps Build into a Provider PromptInput.
func (b *PromptBuilder) BuildInput(summary string, meta map[string]string) ports.PromptInput {
	system, user := b.Build(summary)
	return ports.PromptInput{
		System:   system,
		Messages: []ports.PromptMessage{{Role: "user", Content: user}},
		Meta:     meta,
	}
}
