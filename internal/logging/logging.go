// Package logging builds the shared zap logger.
package logging

import (
	"go.uber.org/zap"
)

// New returns the process logger. Debug mode switches to the development
// encoder with debug-level output; otherwise the production JSON encoder
// at info level is used.
func New(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// NewNop returns a logger that discards everything. Used by tests and by
// constructors that accept a nil logger.
func NewNop() *zap.Logger {
	return zap.NewNop()
}
