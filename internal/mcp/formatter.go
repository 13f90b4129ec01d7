package mcp

import (
	"fmt"
	"slices"
	"strings"

	"github.com/maraichr/notebook/internal/mbql"
	"github.com/maraichr/notebook/internal/notebook"
)

const defaultMaxTokens = 4000

// Verbosity controls how much detail is included in step cards.
type Verbosity string

const (
	VerbositySummary  Verbosity = "summary"
	VerbosityStandard Verbosity = "standard"
	VerbosityFull     Verbosity = "full"
)

// ParseVerbosity returns a Verbosity from a string, defaulting to standard.
func ParseVerbosity(s string) Verbosity {
	switch strings.ToLower(s) {
	case "summary":
		return VerbositySummary
	case "full":
		return VerbosityFull
	default:
		return VerbosityStandard
	}
}

// ResponseBuilder constructs token-budgeted Markdown responses for MCP tools.
type ResponseBuilder struct {
	buf           strings.Builder
	tokenEstimate int
	maxTokens     int
	truncated     bool
	itemCount     int
}

// NewResponseBuilder creates a builder with the given token budget.
// If maxTokens <= 0, defaultMaxTokens is used.
func NewResponseBuilder(maxTokens int) *ResponseBuilder {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &ResponseBuilder{maxTokens: maxTokens}
}

// AddHeader writes a header line. Headers are never truncated.
func (rb *ResponseBuilder) AddHeader(text string) {
	line := text + "\n\n"
	rb.buf.WriteString(line)
	rb.tokenEstimate += len(line) / 4
}

// write appends text if it fits the budget.
func (rb *ResponseBuilder) write(text string) bool {
	cost := len(text) / 4
	if rb.tokenEstimate+cost > rb.maxTokens {
		rb.truncated = true
		return false
	}
	rb.buf.WriteString(text)
	rb.tokenEstimate += cost
	return true
}

// AddLine writes a single line, returning false if the budget is exceeded.
func (rb *ResponseBuilder) AddLine(text string) bool {
	return rb.write(text + "\n")
}

// AddStepCard renders a step at the requested verbosity.
// Returns false if the card would exceed the token budget.
func (rb *ResponseBuilder) AddStepCard(s *notebook.Step, verbosity Verbosity, open notebook.OpenSteps) bool {
	if !rb.write(formatStepCard(s, verbosity, open)) {
		return false
	}
	rb.itemCount++
	return true
}

// AddSection writes a section with a heading.
func (rb *ResponseBuilder) AddSection(heading string, content string) bool {
	return rb.write(fmt.Sprintf("### %s\n%s\n\n", heading, content))
}

// AddRawText writes raw text, respecting the budget.
func (rb *ResponseBuilder) AddRawText(text string) bool {
	return rb.write(text)
}

// Finalize appends a truncation notice and returns the response text.
func (rb *ResponseBuilder) Finalize(totalCount, returnedCount int) string {
	if rb.truncated || returnedCount < totalCount {
		rb.buf.WriteString(fmt.Sprintf(
			"\n---\n*Showing %d of %d results (truncated to ~%d tokens). Use `offset` to paginate or increase `max_response_tokens`.*\n",
			returnedCount, totalCount, rb.maxTokens))
	}
	return rb.buf.String()
}

// FinalizeWithHints appends navigation hints and a truncation notice.
func (rb *ResponseBuilder) FinalizeWithHints(totalCount, returnedCount int, hints *NavigationHints) string {
	if rb.truncated || returnedCount < totalCount {
		rb.buf.WriteString(fmt.Sprintf(
			"\n---\n*Showing %d of %d results (~%d tokens).*\n",
			returnedCount, totalCount, rb.tokenEstimate))
	}

	if hints != nil && len(hints.Steps) > 0 {
		rb.buf.WriteString("\n---\n**Next steps:**\n")
		for _, step := range hints.Steps {
			rb.buf.WriteString(fmt.Sprintf("- %s -> `%s`", step.Description, step.Tool))
			if len(step.Params) > 0 {
				rb.buf.WriteString(" " + formatParams(step.Params))
			}
			rb.buf.WriteString("\n")
		}
	}

	return rb.buf.String()
}

func (rb *ResponseBuilder) TokenEstimate() int { return rb.tokenEstimate }
func (rb *ResponseBuilder) IsTruncated() bool  { return rb.truncated }
func (rb *ResponseBuilder) ItemCount() int     { return rb.itemCount }

func formatParams(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=`%s`", k, params[k])
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// formatStepCard renders a step as a Markdown card at the given verbosity.
func formatStepCard(s *notebook.Step, verbosity Verbosity, open notebook.OpenSteps) string {
	var b strings.Builder

	state := ""
	switch {
	case s.Active:
	case open[s.ID]:
		state = " *(open)*"
	default:
		state = " *(empty)*"
	}

	b.WriteString(fmt.Sprintf("**%s** (%s, stage %d)%s\n", s.ID, s.Type, s.StageIndex, state))
	if verbosity == VerbositySummary {
		b.WriteString("\n")
		return b.String()
	}

	if summary := stepSummary(s); summary != "" {
		b.WriteString(fmt.Sprintf("  %s\n", summary))
	}
	if len(s.Actions) > 0 {
		names := make([]string, len(s.Actions))
		for i, a := range s.Actions {
			names[i] = fmt.Sprintf("`%s`", a.StepID)
		}
		b.WriteString(fmt.Sprintf("  Can add: %s\n", strings.Join(names, ", ")))
	}
	if s.Revertible() && s.Active {
		b.WriteString("  Revertible: yes\n")
	}
	if verbosity == VerbosityFull {
		b.WriteString(fmt.Sprintf("  Preview: `%s`\n", s.PreviewQuery.String()))
	}
	b.WriteString("\n")
	return b.String()
}

// stepSummary describes the clauses a step holds.
func stepSummary(s *notebook.Step) string {
	st := s.Query.Stage(s.StageIndex)
	switch s.Type {
	case notebook.StepData:
		if id, ok := st.SourceTableID(); ok {
			return fmt.Sprintf("Source: table %d", id)
		}
		if src := st.SourceTable(); src != nil {
			return fmt.Sprintf("Source: %v", src)
		}
		return "Source: none"
	case notebook.StepJoin:
		joins := st.Joins()
		if s.ItemIndex != nil && *s.ItemIndex < len(joins) {
			return fmt.Sprintf("Join: %s", joins[*s.ItemIndex].Alias())
		}
	case notebook.StepExpression:
		exprs := st.Expressions()
		names := make([]string, len(exprs))
		for i, e := range exprs {
			names[i] = e.Name
		}
		if len(names) > 0 {
			return "Expressions: " + strings.Join(names, ", ")
		}
	case notebook.StepFilter:
		if ops := operators(st.Filters()); ops != "" {
			return "Filters: " + ops
		}
	case notebook.StepSummarize:
		aggs, bos := st.Aggregations(), st.Breakouts()
		if len(aggs)+len(bos) > 0 {
			return fmt.Sprintf("Metrics: %s | Groupings: %d", orNone(operators(aggs)), len(bos))
		}
	case notebook.StepSort:
		if ops := operators(st.OrderBy()); ops != "" {
			return "Sort: " + ops
		}
	case notebook.StepLimit:
		if n, ok := st.Limit(); ok {
			return fmt.Sprintf("Limit: %d", n)
		}
	}
	return ""
}

func operators(cs []mbql.Clause) string {
	ops := make([]string, len(cs))
	for i, c := range cs {
		ops[i] = c.Operator()
	}
	return strings.Join(ops, ", ")
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
