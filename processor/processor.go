// Package processor finds slang terms in page content.
package processor

// Match is one occurrence of a known term, with the sentence it appeared in.
type Match struct {
	Term    string `json:"term"`
	Context string `json:"context"`
	Tag     string `json:"tag,omitempty"` // Enclosing element
}

// Scanner finds known terms in content.
type Scanner interface {
	Scan(content string, known []string) ([]Match, error)
	ContentType() string
}
