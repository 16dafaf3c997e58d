// Package narrative writes the short prose summary that accompanies each
// chart of a report.
//
// A Service never fails a report: every problem, from a missing API key to a
// rate-limited request, comes back as a Result whose Err is set. The caller
// decides how to show it.
package narrative

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"collisio/internal/analysis"
)

// PromptRows bounds how many table rows are sent to the model.
const PromptRows = 10

var (
	// ErrNoAPIKey is the failure reported for every section when no key is configured.
	ErrNoAPIKey = errors.New("no API key configured")
	// ErrDisabled is the failure reported when narratives are switched off.
	ErrDisabled = errors.New("narrative generation disabled")
	// ErrEmptyResponse is returned when the model answers with no text.
	ErrEmptyResponse = errors.New("model returned no text")
)

// Style selects how much depth the prompt asks for.
type Style string

const (
	Basic    Style = "basic"
	Enhanced Style = "enhanced"
	Advanced Style = "advanced"
)

// Valid reports whether s is a known style.
func (s Style) Valid() bool {
	return s == Basic || s == Enhanced || s == Advanced
}

// Request asks for a summary of one table.
type Request struct {
	Title string
	Style Style
	Table *analysis.FrequencyTable
}

// Result is either generated text or the reason there is none.
type Result struct {
	Text string
	Err  error
}

// OK reports whether the result carries generated text.
func (r Result) OK() bool {
	return r.Err == nil
}

// Display returns the text, or a visible placeholder naming the failure.
func (r Result) Display() string {
	if r.OK() {
		return r.Text
	}
	return fmt.Sprintf("[Narrative unavailable: %v]", r.Err)
}

// Failure wraps err as a Result.
func Failure(err error) Result {
	return Result{Err: err}
}

// Service produces a narrative for a table.
type Service interface {
	Summarize(ctx context.Context, req Request) Result
}

// Unavailable is a Service that always fails with Reason.
type Unavailable struct {
	Reason error
}

// Summarize implements Service.
func (u Unavailable) Summarize(context.Context, Request) Result {
	return Failure(u.Reason)
}

var framing = map[Style]string{
	Basic: "Write a short professional summary of the chart titled %q.",
	Enhanced: "The chart below shows accident distribution titled %q. " +
		"Summarize key findings and highlight any safety-critical patterns.",
	Advanced: "The chart below shows accident distribution titled %q. " +
		"Highlight notable patterns, especially frequencies, dominant values or changes over time, " +
		"and suggest where countermeasures would have the most effect. " +
		"Use the tone of a traffic safety consultant writing for a municipality.",
}

// BuildPrompt assembles the role framing, the title and the first
// PromptRows rows of the table.
func BuildPrompt(req Request) string {
	style := req.Style
	if !style.Valid() {
		style = Basic
	}

	var b strings.Builder
	b.WriteString("You are a road/traffic safety analyst. ")
	fmt.Fprintf(&b, framing[style], req.Title)
	if req.Table != nil {
		b.WriteString("\n\nData:\n")
		b.WriteString(req.Table.Format(PromptRows))
	}
	return b.String()
}
