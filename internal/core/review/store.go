package review

import (
	"context"
	"errors"
)

// Sentinel errors for review operations. Stores wrap these with the
// missing id so messages name both the entity kind and the id.
var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrThreadNotFound     = errors.New("thread not found")
	ErrAnnotationNotFound = errors.New("annotation not found")
	ErrNotSuggestion      = errors.New("not a suggestion")
	ErrUnknownVerdict     = errors.New("unknown verdict")
)

// AnnotationInput carries the caller-supplied fields for a new annotation.
type AnnotationInput struct {
	Type       AnnotationType
	Body       string
	Author     Author
	Suggestion *Suggestion
}

// DeleteAnnotationResult reports the outcome of removing an annotation.
// When the removed annotation was the thread's last one, the thread is
// removed too and Thread is nil.
type DeleteAnnotationResult struct {
	Thread        *Thread `json:"thread"`
	ThreadDeleted bool    `json:"threadDeleted"`
}

// Store defines persistence operations for review sessions, threads, and
// annotations.
type Store interface {
	// StartSession creates a new in_progress session for a feature and
	// makes it the feature's active session.
	StartSession(ctx context.Context, feature string, scope Scope, baseRef, headRef string) (*Session, error)

	// GetSession resolves a session by id alone, scanning all features.
	// Returns ErrSessionNotFound if no feature owns it.
	GetSession(ctx context.Context, id string) (*Session, error)

	// ListSessions returns the index summaries for a feature, not full
	// thread data. A feature with no reviews yields an empty slice.
	ListSessions(ctx context.Context, feature string) ([]IndexEntry, error)

	// SubmitSession records a verdict, moves the session to its terminal
	// status, and clears the feature's active session id.
	SubmitSession(ctx context.Context, id string, verdict Verdict, summary string) (*Session, error)

	// UpdateSession overwrites a session wholesale. Used by callers that
	// mutate session-level fields not covered by a narrower method.
	UpdateSession(ctx context.Context, session *Session) error

	// AddThread creates a thread with exactly one annotation.
	AddThread(ctx context.Context, sessionID, entityID string, uri *string, r Range, input AnnotationInput) (*Thread, error)

	// ReplyToThread appends a comment annotation to a thread resolved by
	// id alone, attributed to an llm author when agentID is non-empty.
	ReplyToThread(ctx context.Context, threadID, body, agentID string) (*Annotation, error)

	ResolveThread(ctx context.Context, threadID string) (*Thread, error)
	UnresolveThread(ctx context.Context, threadID string) (*Thread, error)

	// MarkThreadOutdated flags a thread whose underlying code has since
	// changed.
	MarkThreadOutdated(ctx context.Context, threadID string) (*Thread, error)

	// DeleteThread removes a thread from an explicitly named session,
	// failing distinctly for a missing session vs a missing thread.
	DeleteThread(ctx context.Context, sessionID, threadID string) error

	EditAnnotation(ctx context.Context, threadID, annotationID, body string) (*Annotation, error)
	DeleteAnnotation(ctx context.Context, threadID, annotationID string) (DeleteAnnotationResult, error)

	// MarkSuggestionApplied records that a suggestion's replacement was
	// applied. Fails with ErrNotSuggestion for any other annotation type.
	MarkSuggestionApplied(ctx context.Context, threadID, annotationID string) (*Annotation, error)
}
