// Package plan defines the data model for plan documents and the inline
// comments attached to them. Plan comments are simpler than review
// threads: each is independently resolvable and gates plan approval.
package plan

import (
	"time"

	"github.com/margin-sh/margin/internal/core/review"
)

// Status is the lifecycle state of a feature's plan.
type Status string

const (
	StatusPlanning Status = "planning"
	StatusApproved Status = "approved"
)

// Author distinguishes the human reviewer from the agent.
type Author string

const (
	AuthorHuman Author = "human"
	AuthorAgent Author = "agent"
)

// Reply is one response under a plan comment.
type Reply struct {
	ID        string    `json:"id"`
	Body      string    `json:"body"`
	Author    Author    `json:"author"`
	Timestamp time.Time `json:"timestamp"`
}

// Comment is inline feedback anchored to a span of the plan document.
type Comment struct {
	ID        string       `json:"id"`
	Range     review.Range `json:"range"`
	Body      string       `json:"body"`
	Author    Author       `json:"author"`
	Timestamp time.Time    `json:"timestamp"`
	Resolved  bool         `json:"resolved"`
	Replies   []Reply      `json:"replies,omitempty"`
}

// CommentsFile is the on-disk comment collection, one per feature, tied
// 1:1 to that feature's plan document.
type CommentsFile struct {
	Threads []Comment `json:"threads"`
}

// Document is a plan body together with its approval status and comments.
type Document struct {
	Content  string    `json:"content"`
	Status   Status    `json:"status"`
	Comments []Comment `json:"comments"`
}
