package stores

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/margin-sh/margin/internal/core/eventbus"
	"github.com/margin-sh/margin/internal/core/logging"
	"github.com/margin-sh/margin/internal/core/plan"
	"github.com/margin-sh/margin/internal/core/review"
	"github.com/margin-sh/margin/pkg/randid"
)

// PlanStore implements plan.Store over per-feature files: the plan body,
// a single comments.json collection, an approval marker file, and a
// companion feature.json status record.
type PlanStore struct {
	root   string
	events *eventbus.Bus
	log    zerolog.Logger
	mu     sync.Mutex
}

var _ plan.Store = (*PlanStore)(nil)

// NewPlanStore creates a JSON-file plan store rooted at the features
// directory. bus may be nil.
func NewPlanStore(root string, bus *eventbus.Bus) *PlanStore {
	return &PlanStore{
		root:   root,
		events: bus,
		log:    logging.Component("planstore"),
	}
}

func (s *PlanStore) planPath(feature string) string {
	return filepath.Join(s.root, feature, planFileName)
}

func (s *PlanStore) commentsPath(feature string) string {
	return filepath.Join(s.root, feature, commentsFileName)
}

func (s *PlanStore) approvedPath(feature string) string {
	return filepath.Join(s.root, feature, approvedFileName)
}

func (s *PlanStore) featurePath(feature string) string {
	return filepath.Join(s.root, feature, featureFileName)
}

// Write persists the plan body, then unconditionally clears all comments
// for the feature and revokes any existing approval. A rewritten plan
// invalidates every prior discussion point.
func (s *PlanStore) Write(ctx context.Context, feature, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.planPath(feature)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create feature dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write plan: %w", err)
	}

	if err := writeJSON(s.commentsPath(feature), plan.CommentsFile{Threads: []plan.Comment{}}); err != nil {
		return fmt.Errorf("clear comments: %w", err)
	}

	if err := s.revokeApprovalLocked(feature); err != nil {
		return err
	}

	s.events.Publish(eventbus.EventPlanWritten, eventbus.PlanPayload{Feature: feature})
	return nil
}

// Read returns the plan body, approval status, and migrated comments.
func (s *PlanStore) Read(ctx context.Context, feature string) (*plan.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.planPath(feature))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", plan.ErrPlanNotFound, feature)
	}
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}

	status := plan.StatusPlanning
	if s.approvedExists(feature) {
		status = plan.StatusApproved
	}

	comments, err := s.getCommentsLocked(feature)
	if err != nil {
		return nil, err
	}

	return &plan.Document{
		Content:  string(data),
		Status:   status,
		Comments: comments,
	}, nil
}

// Approve marks the plan approved. Every comment must be explicitly
// resolved first; an absent resolved flag counts as unresolved.
func (s *PlanStore) Approve(ctx context.Context, feature string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.planPath(feature)); os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", plan.ErrPlanNotFound, feature)
	} else if err != nil {
		return fmt.Errorf("stat plan: %w", err)
	}

	comments, err := s.getCommentsLocked(feature)
	if err != nil {
		return err
	}

	unresolved := 0
	for _, c := range comments {
		if !c.Resolved {
			unresolved++
		}
	}
	if unresolved > 0 {
		return fmt.Errorf("%d %w", unresolved, plan.ErrUnresolvedComments)
	}

	now := time.Now()
	marker := "Approved at " + now.Format(time.RFC3339) + "\n"
	if err := os.WriteFile(s.approvedPath(feature), []byte(marker), 0o644); err != nil {
		return fmt.Errorf("write approval marker: %w", err)
	}

	record, err := s.loadFeatureRecord(feature)
	if err != nil {
		return err
	}
	if record == nil {
		record = map[string]any{}
	}
	record["status"] = string(plan.StatusApproved)
	record["approvedAt"] = now.Format(time.RFC3339)
	if err := writeJSON(s.featurePath(feature), record); err != nil {
		return fmt.Errorf("write feature record: %w", err)
	}

	s.events.Publish(eventbus.EventPlanApproved, eventbus.PlanPayload{Feature: feature})
	return nil
}

// IsApproved reports whether the approval marker exists.
func (s *PlanStore) IsApproved(ctx context.Context, feature string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.approvedExists(feature), nil
}

// RevokeApproval removes the marker and reverts the feature status if it
// is currently approved.
func (s *PlanStore) RevokeApproval(ctx context.Context, feature string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.revokeApprovalLocked(feature); err != nil {
		return err
	}

	s.events.Publish(eventbus.EventPlanApprovalRevoked, eventbus.PlanPayload{Feature: feature})
	return nil
}

func (s *PlanStore) revokeApprovalLocked(feature string) error {
	if err := os.Remove(s.approvedPath(feature)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove approval marker: %w", err)
	}

	record, err := s.loadFeatureRecord(feature)
	if err != nil {
		return err
	}
	if record == nil {
		return nil
	}

	if status, _ := record["status"].(string); status == string(plan.StatusApproved) {
		record["status"] = string(plan.StatusPlanning)
		delete(record, "approvedAt")
		if err := writeJSON(s.featurePath(feature), record); err != nil {
			return fmt.Errorf("write feature record: %w", err)
		}
	}

	return nil
}

// GetComments returns the comment collection in stored order, migrating
// legacy records to the current schema.
func (s *PlanStore) GetComments(ctx context.Context, feature string) ([]plan.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getCommentsLocked(feature)
}

// AddComment appends a comment with a fresh id and timestamp.
func (s *PlanStore) AddComment(ctx context.Context, feature string, r review.Range, body string, author plan.Author) (*plan.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	comments, err := s.getCommentsLocked(feature)
	if err != nil {
		return nil, err
	}

	comment := plan.Comment{
		ID:        uuid.NewString(),
		Range:     r,
		Body:      body,
		Author:    author,
		Timestamp: time.Now(),
	}
	comments = append(comments, comment)
	if err := s.saveComments(feature, comments); err != nil {
		return nil, err
	}

	created := &comments[len(comments)-1]
	s.events.Publish(eventbus.EventCommentAdded, eventbus.CommentPayload{Feature: feature, Comment: created})
	return created, nil
}

// ResolveComment marks a comment resolved.
func (s *PlanStore) ResolveComment(ctx context.Context, feature, commentID string) (*plan.Comment, error) {
	return s.setCommentResolved(feature, commentID, true, eventbus.EventCommentResolved)
}

// UnresolveComment reopens a comment.
func (s *PlanStore) UnresolveComment(ctx context.Context, feature, commentID string) (*plan.Comment, error) {
	return s.setCommentResolved(feature, commentID, false, eventbus.EventCommentUnresolved)
}

func (s *PlanStore) setCommentResolved(feature, commentID string, resolved bool, event eventbus.Event) (*plan.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	comments, idx, err := s.findComment(feature, commentID)
	if err != nil {
		return nil, err
	}

	comments[idx].Resolved = resolved
	if err := s.saveComments(feature, comments); err != nil {
		return nil, err
	}

	s.events.Publish(event, eventbus.CommentPayload{Feature: feature, Comment: &comments[idx]})
	return &comments[idx], nil
}

// DeleteComment removes a comment and its replies.
func (s *PlanStore) DeleteComment(ctx context.Context, feature, commentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	comments, idx, err := s.findComment(feature, commentID)
	if err != nil {
		return err
	}

	comments = append(comments[:idx], comments[idx+1:]...)
	if err := s.saveComments(feature, comments); err != nil {
		return err
	}

	s.events.Publish(eventbus.EventCommentDeleted, eventbus.CommentPayload{Feature: feature})
	return nil
}

// EditComment updates a comment's body and bumps its timestamp.
func (s *PlanStore) EditComment(ctx context.Context, feature, commentID, body string) (*plan.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	comments, idx, err := s.findComment(feature, commentID)
	if err != nil {
		return nil, err
	}

	comments[idx].Body = body
	comments[idx].Timestamp = time.Now()
	if err := s.saveComments(feature, comments); err != nil {
		return nil, err
	}

	s.events.Publish(eventbus.EventCommentEdited, eventbus.CommentPayload{Feature: feature, Comment: &comments[idx]})
	return &comments[idx], nil
}

// AddReply appends a reply under a comment.
func (s *PlanStore) AddReply(ctx context.Context, feature, commentID, body string, author plan.Author) (*plan.Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	comments, idx, err := s.findComment(feature, commentID)
	if err != nil {
		return nil, err
	}

	reply := plan.Reply{
		ID:        randid.Generate(8),
		Body:      body,
		Author:    author,
		Timestamp: time.Now(),
	}
	comments[idx].Replies = append(comments[idx].Replies, reply)
	if err := s.saveComments(feature, comments); err != nil {
		return nil, err
	}

	created := &comments[idx].Replies[len(comments[idx].Replies)-1]
	s.events.Publish(eventbus.EventReplyAdded, eventbus.ReplyPayload{Feature: feature, CommentID: commentID, Reply: created})
	return created, nil
}

// EditReply updates a reply's body and bumps its timestamp.
func (s *PlanStore) EditReply(ctx context.Context, feature, commentID, replyID, body string) (*plan.Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	comments, idx, err := s.findComment(feature, commentID)
	if err != nil {
		return nil, err
	}

	replyIdx := findReply(comments[idx].Replies, replyID)
	if replyIdx == -1 {
		return nil, fmt.Errorf("%w: %s", plan.ErrReplyNotFound, replyID)
	}

	comments[idx].Replies[replyIdx].Body = body
	comments[idx].Replies[replyIdx].Timestamp = time.Now()
	if err := s.saveComments(feature, comments); err != nil {
		return nil, err
	}

	edited := &comments[idx].Replies[replyIdx]
	s.events.Publish(eventbus.EventReplyEdited, eventbus.ReplyPayload{Feature: feature, CommentID: commentID, Reply: edited})
	return edited, nil
}

// DeleteReply removes a single reply.
func (s *PlanStore) DeleteReply(ctx context.Context, feature, commentID, replyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	comments, idx, err := s.findComment(feature, commentID)
	if err != nil {
		return err
	}

	replyIdx := findReply(comments[idx].Replies, replyID)
	if replyIdx == -1 {
		return fmt.Errorf("%w: %s", plan.ErrReplyNotFound, replyID)
	}

	comments[idx].Replies = append(comments[idx].Replies[:replyIdx], comments[idx].Replies[replyIdx+1:]...)
	if err := s.saveComments(feature, comments); err != nil {
		return err
	}

	s.events.Publish(eventbus.EventReplyDeleted, eventbus.ReplyPayload{Feature: feature, CommentID: commentID})
	return nil
}

func findReply(replies []plan.Reply, replyID string) int {
	for i := range replies {
		if replies[i].ID == replyID {
			return i
		}
	}
	return -1
}

func (s *PlanStore) approvedExists(feature string) bool {
	_, err := os.Stat(s.approvedPath(feature))
	return err == nil
}

// getCommentsLocked reads the raw comments file and migrates every record.
// A missing file yields an empty collection.
func (s *PlanStore) getCommentsLocked(feature string) ([]plan.Comment, error) {
	path := s.commentsPath(feature)

	var rawFile struct {
		Threads []json.RawMessage `json:"threads"`
	}
	err := readJSON(path, &rawFile)
	if os.IsNotExist(err) {
		return []plan.Comment{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read comments: %w", err)
	}

	// Records missing a timestamp default to the file's mtime.
	fallback := time.Now()
	if info, err := os.Stat(path); err == nil {
		fallback = info.ModTime()
	}

	comments := make([]plan.Comment, 0, len(rawFile.Threads))
	for _, raw := range rawFile.Threads {
		comments = append(comments, migrateComment(raw, fallback))
	}

	return comments, nil
}

func (s *PlanStore) saveComments(feature string, comments []plan.Comment) error {
	if err := writeJSON(s.commentsPath(feature), plan.CommentsFile{Threads: comments}); err != nil {
		return fmt.Errorf("write comments: %w", err)
	}
	return nil
}

func (s *PlanStore) findComment(feature, commentID string) ([]plan.Comment, int, error) {
	comments, err := s.getCommentsLocked(feature)
	if err != nil {
		return nil, 0, err
	}

	for i := range comments {
		if comments[i].ID == commentID {
			return comments, i, nil
		}
	}

	return nil, 0, fmt.Errorf("%w: %s", plan.ErrCommentNotFound, commentID)
}

// loadFeatureRecord reads feature.json as a raw map so fields owned by
// other tools survive the read-modify-write. Returns nil when the file
// does not exist.
func (s *PlanStore) loadFeatureRecord(feature string) (map[string]any, error) {
	var record map[string]any
	err := readJSON(s.featurePath(feature), &record)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read feature record: %w", err)
	}
	return record, nil
}
