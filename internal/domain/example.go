// Package domain contains the core types of the relevance-judging pipeline:
// the normalized query/document examples fed to judges, the validated
// judgement records they produce, and the error taxonomy shared across
// the parsing and retry layers. The package has no dependencies so that
// every layer can use these types without import cycles.
package domain

import "fmt"

// JudgingExample is the normalized unit of work for a relevance judge.
// It joins a query, a document, and the gold relevance label into a single
// record so prompt builders and provider adapters can operate on one item.
type JudgingExample struct {
	// Dataset identifies the source dataset and schema revision.
	// Downstream stages key their data contract off this value.
	Dataset string `json:"dataset"`

	// QueryID uniquely identifies the query within the dataset.
	QueryID string `json:"query_id"`

	// QueryText is the full text of the search query.
	QueryText string `json:"query_text"`

	// DocID uniquely identifies the document within the dataset.
	DocID string `json:"docid"`

	// Doc is the document text to be judged against the query.
	Doc string `json:"doc"`

	// GoldRelevance is the human-assigned relevance label carried through
	// for later evaluation. It is never shown to the model.
	GoldRelevance int `json:"gold_relevance"`
}

// Key returns the query/document identity used in logs and error messages.
func (e JudgingExample) Key() string {
	return fmt.Sprintf("%s/%s", e.QueryID, e.DocID)
}
