package events

import "time"

// SchemeCompleted is sent when one scheme's sync run finishes, successfully
// or not.
type SchemeCompleted struct {
	Scheme         string        // Scheme identifier (e.g., "vetVisits")
	RunID          string        // Identifier shared by all schemes of one run
	DocumentsAdded int           // Documents that produced a new manifest entry
	ChunkCount     int           // Full-content chunks produced by added documents
	Removed        int           // Manifest entries purged from the index
	Skipped        int           // Documents whose processing failed
	Err            error         // Non-nil when the scheme reported zero progress
	Duration       time.Duration // How long the scheme took
}

// Succeeded reports whether the scheme completed without a fatal error.
func (e SchemeCompleted) Succeeded() bool {
	return e.Err == nil
}

// Observer receives completion events.
type Observer interface {
	OnSchemeCompleted(SchemeCompleted)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(SchemeCompleted)

func (f ObserverFunc) OnSchemeCompleted(e SchemeCompleted) {
	f(e)
}
