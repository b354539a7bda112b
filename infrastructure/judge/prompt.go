package judge

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/modelrank/judgekit/infrastructure/parsers"
	"github.com/modelrank/judgekit/internal/domain"
)

// defaultTaggedPrompt instructs the model to answer in the tagged protocol
// that the tagged parser expects.
const defaultTaggedPrompt = `You are a relevance judge. Given a query and a document, you must determine if the document is relevant, partially relevant, or irrelevant to the query.

Query: {{.Query}}

Document: {{.Document}}

Is this document relevant to the query? Respond with:
- "relevant" if the document fully answers the query
- "partially" if the document is somewhat related but incomplete
- "irrelevant" if the document does not address the query

Format your response as:
LABEL: <relevant|partially|irrelevant>
REASONING: <your explanation>`

// defaultGradedPrompt instructs the model to answer in the JSON score-field
// protocol that the graded parser expects.
const defaultGradedPrompt = `Given a query and a web page, you must provide a score on an integer scale of 0 to 2 with the following meanings:

2 = highly relevant, very helpful for this query
1 = relevant, may be partly helpful but might contain other irrelevant content
0 = not relevant, should never be shown for this query

Query: {{.Query}}

Web page: {{.Document}}

Produce only a JSON object with the final score, for example: {"O": 1}`

// promptData is the substitution context for prompt templates. Templates
// reference {{.Query}} and {{.Document}}.
type promptData struct {
	Query    string
	Document string
}

// PromptBuilder renders judging prompts from a compiled template, keeping
// query and document text inert rather than interpolated into template
// syntax.
type PromptBuilder struct {
	tmpl *template.Template
}

// NewPromptBuilder compiles a prompt template. An empty text selects the
// default template for the given strategy.
func NewPromptBuilder(text, strategy string) (*PromptBuilder, error) {
	if text == "" {
		switch strategy {
		case parsers.StrategyGraded:
			text = defaultGradedPrompt
		case parsers.StrategyTagged:
			text = defaultTaggedPrompt
		default:
			return nil, fmt.Errorf("%w: no default prompt for strategy %q",
				domain.ErrInvalidConfiguration, strategy)
		}
	}

	tmpl, err := template.New("judgePrompt").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse judge prompt template: %w", err)
	}
	return &PromptBuilder{tmpl: tmpl}, nil
}

// Build renders the prompt for one example.
func (b *PromptBuilder) Build(example domain.JudgingExample) (string, error) {
	var buf bytes.Buffer
	data := promptData{Query: example.QueryText, Document: example.Doc}
	if err := b.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template for %s: %w",
			example.Key(), err)
	}
	return buf.String(), nil
}
