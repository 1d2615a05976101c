package errors

import (
	"strings"
	"sync"

	"github.com/leeforge/thumbkit/json"
)

// ErrorChain collects the failures of independent work items so a batch can
// keep going and report them together at the end.
type ErrorChain struct {
	mu     sync.Mutex
	errors []*AppError
}

// NewErrorChain creates a new error chain
func NewErrorChain() *ErrorChain {
	return &ErrorChain{
		errors: make([]*AppError, 0),
	}
}

// Add adds an error to the chain. Plain errors are converted with FromError.
func (c *ErrorChain) Add(err error) *ErrorChain {
	if err == nil {
		return c
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = append(c.errors, FromError(err))
	return c
}

// HasErrors checks if the chain has errors
func (c *ErrorChain) HasErrors() bool {
	return c.Len() > 0
}

// Len returns the number of collected errors.
func (c *ErrorChain) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errors)
}

// Error returns the combined error message
func (c *ErrorChain) Error() string {
	if !c.HasErrors() {
		return ""
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	messages := make([]string, 0, len(c.errors))
	for _, err := range c.errors {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, " | ")
}

// Errors returns a copy of all errors in the chain
func (c *ErrorChain) Errors() []*AppError {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*AppError, len(c.errors))
	copy(out, c.errors)
	return out
}

type chainEntry struct {
	Type    ErrorType      `json:"type"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// MarshalJSON renders the chain as a list with full messages, inner errors included.
func (c *ErrorChain) MarshalJSON() ([]byte, error) {
	errs := c.Errors()
	entries := make([]chainEntry, 0, len(errs))
	for _, err := range errs {
		entries = append(entries, chainEntry{
			Type:    err.Type,
			Code:    err.Code,
			Message: err.Error(),
			Details: err.Details,
		})
	}
	return json.Marshal(entries)
}
