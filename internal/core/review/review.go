// Package review defines the data model for review sessions: sessions,
// threads, annotations, and the ranges that anchor them to documents or
// diff-rendered files.
package review

import (
	"time"

	"github.com/margin-sh/margin/internal/core/diff"
)

// SchemaVersion is written to every top-level JSON document to permit
// future migration dispatch.
const SchemaVersion = 1

// Position is a zero-based document position. Character offsets count
// UTF-16 code units, matching editor conventions.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range anchors a thread or comment to a span. Start is inclusive, End
// exclusive.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Scope identifies what a review session covers.
type Scope string

const (
	ScopeFeature Scope = "feature"
	ScopeTask    Scope = "task"
	ScopeContext Scope = "context"
	ScopePlan    Scope = "plan"
	ScopeCode    Scope = "code"
)

// SessionStatus is the lifecycle state of a review session.
type SessionStatus string

const (
	StatusInProgress       SessionStatus = "in_progress"
	StatusApproved         SessionStatus = "approved"
	StatusChangesRequested SessionStatus = "changes_requested"
	StatusCommented        SessionStatus = "commented"
)

// Verdict is the terminal judgment submitted for a session.
type Verdict string

const (
	VerdictApprove        Verdict = "approve"
	VerdictRequestChanges Verdict = "request_changes"
	VerdictComment        Verdict = "comment"
)

// StatusForVerdict maps a submitted verdict to the session status it
// produces.
func StatusForVerdict(v Verdict) (SessionStatus, bool) {
	switch v {
	case VerdictApprove:
		return StatusApproved, true
	case VerdictRequestChanges:
		return StatusChangesRequested, true
	case VerdictComment:
		return StatusCommented, true
	default:
		return "", false
	}
}

// ThreadStatus is the discussion state of a thread.
type ThreadStatus string

const (
	ThreadOpen     ThreadStatus = "open"
	ThreadResolved ThreadStatus = "resolved"
	ThreadOutdated ThreadStatus = "outdated"
)

// AnnotationType classifies one message within a thread.
type AnnotationType string

const (
	AnnotationComment    AnnotationType = "comment"
	AnnotationSuggestion AnnotationType = "suggestion"
	AnnotationTask       AnnotationType = "task"
	AnnotationQuestion   AnnotationType = "question"
	AnnotationApproval   AnnotationType = "approval"
)

// AuthorType distinguishes human reviewers from automated agents.
type AuthorType string

const (
	AuthorHuman AuthorType = "human"
	AuthorLLM   AuthorType = "llm"
)

// Author attributes an annotation to a reviewer.
type Author struct {
	Type    AuthorType `json:"type"`
	Name    string     `json:"name"`
	AgentID string     `json:"agentId,omitempty"`
}

// Suggestion carries the replacement text of a suggestion annotation.
type Suggestion struct {
	Replacement string `json:"replacement"`
}

// AnnotationMeta holds mutable bookkeeping attached to an annotation.
type AnnotationMeta struct {
	Applied     bool       `json:"applied,omitempty"`
	AppliedAt   *time.Time `json:"appliedAt,omitempty"`
	DeletedLine *int       `json:"deletedLine,omitempty"`
}

// Annotation is one message in a thread. Identity is immutable; body and
// meta mutate in place. Suggestion is present only for suggestion-type
// annotations.
type Annotation struct {
	ID         string          `json:"id"`
	Type       AnnotationType  `json:"type"`
	Body       string          `json:"body"`
	Author     Author          `json:"author"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
	Suggestion *Suggestion     `json:"suggestion,omitempty"`
	Meta       *AnnotationMeta `json:"meta,omitempty"`
}

// Thread is a chain of annotations anchored to one range. A thread with
// zero annotations does not exist: removing the last annotation removes
// the thread.
type Thread struct {
	ID          string       `json:"id"`
	EntityID    string       `json:"entityId"`
	URI         *string      `json:"uri"`
	Range       Range        `json:"range"`
	Status      ThreadStatus `json:"status"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	Annotations []Annotation `json:"annotations"`
}

// Annotation returns the annotation with the given id, or nil.
func (t *Thread) Annotation(id string) *Annotation {
	for i := range t.Annotations {
		if t.Annotations[i].ID == id {
			return &t.Annotations[i]
		}
	}
	return nil
}

// DiffPayload is a captured diff attached to a session, keyed in
// Session.Diffs by the caller's label for the capture.
type DiffPayload struct {
	BaseRef    string      `json:"baseRef,omitempty"`
	HeadRef    string      `json:"headRef,omitempty"`
	CapturedAt time.Time   `json:"capturedAt"`
	Files      []diff.File `json:"files"`
}

// GitMeta records the refs a code review session was started against.
type GitMeta struct {
	Branch  string `json:"branch,omitempty"`
	Commit  string `json:"commit,omitempty"`
	BaseRef string `json:"baseRef,omitempty"`
	HeadRef string `json:"headRef,omitempty"`
}

// Session is one review conversation over a feature, owned exclusively by
// that feature and persisted as a single JSON file.
type Session struct {
	SchemaVersion int                    `json:"schemaVersion"`
	ID            string                 `json:"id"`
	FeatureName   string                 `json:"featureName"`
	Scope         Scope                  `json:"scope"`
	Status        SessionStatus          `json:"status"`
	Verdict       *Verdict               `json:"verdict"`
	Summary       *string                `json:"summary"`
	CreatedAt     time.Time              `json:"createdAt"`
	UpdatedAt     time.Time              `json:"updatedAt"`
	Threads       []Thread               `json:"threads"`
	Diffs         map[string]DiffPayload `json:"diffs"`
	GitMeta       GitMeta                `json:"gitMeta"`
}

// IsSubmitted returns true once a verdict has moved the session out of
// in_progress.
func (s *Session) IsSubmitted() bool {
	return s.Status != StatusInProgress
}

// Thread returns the thread with the given id, or nil.
func (s *Session) Thread(id string) *Thread {
	for i := range s.Threads {
		if s.Threads[i].ID == id {
			return &s.Threads[i]
		}
	}
	return nil
}

// IndexEntry is the summary row kept in a feature's review index.
type IndexEntry struct {
	ID        string        `json:"id"`
	Scope     Scope         `json:"scope"`
	Status    SessionStatus `json:"status"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// Index is the per-feature session index. ActiveSessionID references an
// in_progress session or is nil; it is cleared on submission.
type Index struct {
	SchemaVersion   int          `json:"schemaVersion"`
	ActiveSessionID *string      `json:"activeSessionId"`
	Sessions        []IndexEntry `json:"sessions"`
}
