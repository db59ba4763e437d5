package plan

import (
	"context"
	"errors"

	"github.com/margin-sh/margin/internal/core/review"
)

// Sentinel errors for plan operations.
var (
	ErrPlanNotFound       = errors.New("no plan.md found")
	ErrCommentNotFound    = errors.New("comment not found")
	ErrReplyNotFound      = errors.New("reply not found")
	ErrUnresolvedComments = errors.New("unresolved comment(s) remain")
)

// Store defines persistence operations for plan documents and their
// comment collections.
type Store interface {
	// Write persists the plan body, then unconditionally clears all
	// comments for the feature and revokes any existing approval.
	Write(ctx context.Context, feature, content string) error

	// Read returns the plan body, approval status, and migrated comments.
	// Returns ErrPlanNotFound if no plan exists.
	Read(ctx context.Context, feature string) (*Document, error)

	// Approve marks the plan approved. Fails with ErrPlanNotFound when no
	// plan exists and ErrUnresolvedComments when any comment is not
	// explicitly resolved.
	Approve(ctx context.Context, feature string) error

	// IsApproved reports whether the approval marker exists.
	IsApproved(ctx context.Context, feature string) (bool, error)

	// RevokeApproval removes the marker and reverts the feature status if
	// it is currently approved.
	RevokeApproval(ctx context.Context, feature string) error

	// GetComments returns the comment collection in stored order, with
	// legacy records migrated to the current schema.
	GetComments(ctx context.Context, feature string) ([]Comment, error)

	AddComment(ctx context.Context, feature string, r review.Range, body string, author Author) (*Comment, error)
	ResolveComment(ctx context.Context, feature, commentID string) (*Comment, error)
	UnresolveComment(ctx context.Context, feature, commentID string) (*Comment, error)
	DeleteComment(ctx context.Context, feature, commentID string) error
	EditComment(ctx context.Context, feature, commentID, body string) (*Comment, error)

	AddReply(ctx context.Context, feature, commentID, body string, author Author) (*Reply, error)
	EditReply(ctx context.Context, feature, commentID, replyID, body string) (*Reply, error)
	DeleteReply(ctx context.Context, feature, commentID, replyID string) error
}
