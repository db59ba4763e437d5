// Package eventbus provides typed lifecycle event publication for the
// margin stores. Events fire synchronously after a mutation has been
// persisted; handler failures are recovered and logged so they can never
// affect the outcome of the operation that triggered them.
package eventbus

import (
	"github.com/margin-sh/margin/internal/core/plan"
	"github.com/margin-sh/margin/internal/core/review"
)

// Event names a store lifecycle event.
type Event string

const (
	// Keep list sorted A-Z
	EventAnnotationAdded     Event = "annotation.added"
	EventAnnotationDeleted   Event = "annotation.deleted"
	EventAnnotationEdited    Event = "annotation.edited"
	EventCommentAdded        Event = "comment.added"
	EventCommentDeleted      Event = "comment.deleted"
	EventCommentEdited       Event = "comment.edited"
	EventCommentResolved     Event = "comment.resolved"
	EventCommentUnresolved   Event = "comment.unresolved"
	EventPlanApprovalRevoked Event = "plan.approval-revoked"
	EventPlanApproved        Event = "plan.approved"
	EventPlanWritten         Event = "plan.written"
	EventReplyAdded          Event = "reply.added"
	EventReplyDeleted        Event = "reply.deleted"
	EventReplyEdited         Event = "reply.edited"
	EventSessionStarted      Event = "session.started"
	EventSessionSubmitted    Event = "session.submitted"
	EventSessionUpdated      Event = "session.updated"
	EventSuggestionApplied   Event = "suggestion.applied"
	EventThreadAdded         Event = "thread.added"
	EventThreadDeleted       Event = "thread.deleted"
	EventThreadOutdated      Event = "thread.outdated"
	EventThreadResolved      Event = "thread.resolved"
	EventThreadUnresolved    Event = "thread.unresolved"
)

// SessionPayload accompanies session lifecycle events.
type SessionPayload struct {
	Session *review.Session
}

// ThreadPayload accompanies thread lifecycle events.
type ThreadPayload struct {
	Feature   string
	SessionID string
	Thread    *review.Thread
}

// ThreadDeletedPayload is emitted when a thread is removed, including the
// cascade delete triggered by removing its last annotation.
type ThreadDeletedPayload struct {
	Feature   string
	SessionID string
	ThreadID  string
}

// AnnotationPayload accompanies annotation lifecycle events.
type AnnotationPayload struct {
	Feature    string
	SessionID  string
	ThreadID   string
	Annotation *review.Annotation
}

// AnnotationDeletedPayload is emitted when an annotation is removed.
type AnnotationDeletedPayload struct {
	Feature      string
	SessionID    string
	ThreadID     string
	AnnotationID string
	// ThreadDeleted is true when the removal cascaded to the thread.
	ThreadDeleted bool
}

// PlanPayload accompanies plan lifecycle events.
type PlanPayload struct {
	Feature string
}

// CommentPayload accompanies plan comment lifecycle events.
type CommentPayload struct {
	Feature string
	Comment *plan.Comment
}

// ReplyPayload accompanies plan comment reply lifecycle events.
type ReplyPayload struct {
	Feature   string
	CommentID string
	Reply     *plan.Reply
}
