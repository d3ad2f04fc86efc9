package harness

import (
	"regexp"
	"strings"
)

// Field names, in the order the diary template emits them.
const (
	FieldWorkSummary    = "Work Summary"
	FieldLearnings      = "Learnings / Outcomes"
	FieldBlockers       = "Blockers / Risks"
	FieldSkills         = "Skills"
	FieldReferenceLinks = "Reference Links"
)

// FieldNames lists every field in template order.
var FieldNames = []string{
	FieldWorkSummary,
	FieldLearnings,
	FieldBlockers,
	FieldSkills,
	FieldReferenceLinks,
}

// ParsedEntry is the structured diary entry recovered from a reply.
// Skills and ReferenceLinks may legitimately be empty.
type ParsedEntry struct {
	WorkSummary    string `json:"Work Summary"`
	Learnings      string `json:"Learnings / Outcomes"`
	Blockers       string `json:"Blockers / Risks"`
	Skills         string `json:"Skills"`
	ReferenceLinks string `json:"Reference Links"`
}

// Get returns the value of the named field, or "" for an unknown name.
func (e ParsedEntry) Get(name string) string {
	for _, d := range fieldDescriptors {
		if d.name == name {
			return d.get(&e)
		}
	}
	return ""
}

// Complete reports whether the mandatory fields are all non-empty.
func (e ParsedEntry) Complete() bool {
	return e.WorkSummary != "" && e.Learnings != "" && e.Blockers != ""
}

// fieldDescriptor drives extraction of one field: a primary pattern that
// starts at a line-leading header and stops at the following header, and
// literal tokens for the fallback split. A header is the field name followed
// by a colon or by the end of its line.
type fieldDescriptor struct {
	name    string
	primary *regexp.Regexp
	tokens  []string
	get     func(*ParsedEntry) string
	set     func(*ParsedEntry, string)
}

var (
	introPattern = regexp.MustCompile(`(?i)Here[’']s your completed daily diary entry.*?👇\s*\n`)

	fieldDescriptors = []fieldDescriptor{
		{
			name:    FieldWorkSummary,
			primary: regexp.MustCompile(`(?is)(?:^|\n)[ \t]*Work\s*Summary[ \t]*(?::|\r?\n)\s*(.*?)\n\s*Learnings\s*/\s*Outcomes[ \t]*(?::|\r?\n)`),
			tokens:  []string{"Work Summary:"},
			get:     func(e *ParsedEntry) string { return e.WorkSummary },
			set:     func(e *ParsedEntry, v string) { e.WorkSummary = v },
		},
		{
			name:    FieldLearnings,
			primary: regexp.MustCompile(`(?is)(?:^|\n)[ \t]*Learnings\s*/\s*Outcomes[ \t]*(?::|\r?\n)\s*(.*?)\n\s*Blockers\s*/\s*Risks[ \t]*(?::|\r?\n)`),
			tokens:  []string{"Learnings / Outcomes:", "Learnings/Outcomes:"},
			get:     func(e *ParsedEntry) string { return e.Learnings },
			set:     func(e *ParsedEntry, v string) { e.Learnings = v },
		},
		{
			name:    FieldBlockers,
			primary: regexp.MustCompile(`(?is)(?:^|\n)[ \t]*Blockers\s*/\s*Risks[ \t]*(?::|\r?\n)\s*(.*?)(?:\n\s*(?:Skills|Reference\s*Links)[ \t]*(?::|\r?\n)|\s*$)`),
			tokens:  []string{"Blockers / Risks:", "Blockers/Risks:"},
			get:     func(e *ParsedEntry) string { return e.Blockers },
			set:     func(e *ParsedEntry, v string) { e.Blockers = v },
		},
		{
			name:    FieldSkills,
			primary: regexp.MustCompile(`(?is)(?:^|\n)[ \t]*Skills[ \t]*(?::|\r?\n)\s*(.*?)\n\s*Reference\s*Links[ \t]*(?::|\r?\n)`),
			tokens:  []string{"Skills:"},
			get:     func(e *ParsedEntry) string { return e.Skills },
			set:     func(e *ParsedEntry, v string) { e.Skills = v },
		},
		{
			name:    FieldReferenceLinks,
			primary: regexp.MustCompile(`(?is)(?:^|\n)[ \t]*Reference\s*Links[ \t]*(?::|\r?\n)\s*(.*)$`),
			tokens:  []string{"Reference Links:"},
			get:     func(e *ParsedEntry) string { return e.ReferenceLinks },
			set:     func(e *ParsedEntry, v string) { e.ReferenceLinks = v },
		},
	}
)

// ResponseParser recovers a ParsedEntry from free-text model output.
type ResponseParser struct {
	fields []fieldDescriptor
}

// NewResponseParser creates a parser over the five diary fields.
func NewResponseParser() *ResponseParser {
	return &ResponseParser{fields: fieldDescriptors}
}

// Parse extracts every field from reply. It never fails: a field it cannot
// locate comes back as an empty string.
func (p *ResponseParser) Parse(reply string) ParsedEntry {
	text := StripIntro(reply)

	var entry ParsedEntry
	for i := range p.fields {
		d := &p.fields[i]
		d.set(&entry, strings.TrimSpace(p.extract(text, d)))
	}
	return entry
}

// StripIntro removes the "Here's your completed daily diary entry 👇" line.
func StripIntro(reply string) string {
	return introPattern.ReplaceAllString(reply, "")
}

func (p *ResponseParser) extract(text string, d *fieldDescriptor) string {
	if m := d.primary.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return p.fallback(text, d)
}

// fallback splits on the literal "Name:" token and stops at the nearest
// header token of any other field.
func (p *ResponseParser) fallback(text string, d *fieldDescriptor) string {
	for _, token := range d.tokens {
		idx := strings.Index(text, token)
		if idx < 0 {
			continue
		}
		rest := text[idx+len(token):]
		if again := strings.Index(rest, token); again >= 0 {
			rest = rest[:again]
		}
		if cut := p.nextHeader(rest, d.name); cut >= 0 {
			rest = rest[:cut]
		}
		return rest
	}
	return ""
}

// nextHeader returns the offset of the earliest token belonging to a field
// other than self, or -1.
func (p *ResponseParser) nextHeader(text, self string) int {
	next := -1
	for i := range p.fields {
		if p.fields[i].name == self {
			continue
		}
		for _, token := range p.fields[i].tokens {
			if idx := strings.Index(text, token); idx >= 0 && (next < 0 || idx < next) {
				next = idx
			}
		}
	}
	return next
}
