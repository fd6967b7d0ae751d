package apperror

import "fmt"

// ValidationError is raised before any external call when the incoming
// message does not carry a usable identity.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// PersonaParseError means the model returned persona JSON that does not
// conform. It is recovered locally with defaults.
type PersonaParseError struct {
	UserId int64
	Raw    string
	Err    error
}

func (e *PersonaParseError) Error() string {
	return fmt.Sprintf("persona for user %d is not valid JSON: %v", e.UserId, e.Err)
}

func (e *PersonaParseError) Unwrap() error { return e.Err }

// RetrievalError wraps a vector store or embedding failure.
type RetrievalError struct {
	Op  string
	Err error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval failed (%s): %v", e.Op, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

func NewRetrievalError(op string, err error) *RetrievalError {
	return &RetrievalError{Op: op, Err: err}
}

// GenerationError wraps a language model failure or an unusable completion.
type GenerationError struct {
	Stage string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed (%s): %v", e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func NewGenerationError(stage string, err error) *GenerationError {
	return &GenerationError{Stage: stage, Err: err}
}

// IndexingError wraps a failure to write documents to the vector store.
type IndexingError struct {
	DocumentIds []string
	Err         error
}

func (e *IndexingError) Error() string {
	return fmt.Sprintf("indexing %d document(s) failed: %v", len(e.DocumentIds), e.Err)
}

func (e *IndexingError) Unwrap() error { return e.Err }
