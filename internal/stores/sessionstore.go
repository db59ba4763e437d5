package stores

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/margin-sh/margin/internal/core/eventbus"
	"github.com/margin-sh/margin/internal/core/logging"
	"github.com/margin-sh/margin/internal/core/review"
	"github.com/margin-sh/margin/pkg/randid"
)

// SessionStore implements review.Store over per-feature JSON files.
//
// Operations addressed by a bare session or thread id resolve the owner
// by scanning every feature directory; cost is O(features x sessions).
type SessionStore struct {
	root   string
	ignore []string
	events *eventbus.Bus
	log    zerolog.Logger
	mu     sync.Mutex
}

var _ review.Store = (*SessionStore)(nil)

// NewSessionStore creates a JSON-file review session store rooted at the
// features directory. Directory names matching an ignore glob are skipped
// during cross-feature scans. bus may be nil.
func NewSessionStore(root string, ignore []string, bus *eventbus.Bus) *SessionStore {
	return &SessionStore{
		root:   root,
		ignore: ignore,
		events: bus,
		log:    logging.Component("sessionstore"),
	}
}

func (s *SessionStore) reviewsDir(feature string) string {
	return filepath.Join(s.root, feature, reviewsDirName)
}

func (s *SessionStore) sessionPath(feature, id string) string {
	return filepath.Join(s.reviewsDir(feature), reviewFileName(id))
}

func (s *SessionStore) indexPath(feature string) string {
	return filepath.Join(s.reviewsDir(feature), indexFileName)
}

// ListFeatures returns the feature directory names under the store root.
func (s *SessionStore) ListFeatures(ctx context.Context) ([]string, error) {
	return listFeatures(s.root, s.ignore)
}

// StartSession creates a new in_progress session for a feature and makes
// it the feature's active session. No check is made against an existing
// in-progress session; the index's active id simply moves to the new one.
func (s *SessionStore) StartSession(ctx context.Context, feature string, scope review.Scope, baseRef, headRef string) (*review.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	sess := &review.Session{
		SchemaVersion: review.SchemaVersion,
		ID:            uuid.NewString(),
		FeatureName:   feature,
		Scope:         scope,
		Status:        review.StatusInProgress,
		CreatedAt:     now,
		UpdatedAt:     now,
		Threads:       []review.Thread{},
		Diffs:         map[string]review.DiffPayload{},
		GitMeta:       review.GitMeta{BaseRef: baseRef, HeadRef: headRef},
	}

	if err := writeJSON(s.sessionPath(feature, sess.ID), sess); err != nil {
		return nil, fmt.Errorf("write session: %w", err)
	}

	idx, err := s.loadIndex(feature)
	if err != nil {
		return nil, err
	}
	idx.Sessions = append(idx.Sessions, review.IndexEntry{
		ID:        sess.ID,
		Scope:     sess.Scope,
		Status:    sess.Status,
		UpdatedAt: sess.UpdatedAt,
	})
	active := sess.ID
	idx.ActiveSessionID = &active
	if err := writeJSON(s.indexPath(feature), idx); err != nil {
		return nil, fmt.Errorf("write index: %w", err)
	}

	s.events.Publish(eventbus.EventSessionStarted, eventbus.SessionPayload{Session: sess})
	return sess, nil
}

// GetSession resolves a session by id alone, scanning all features.
func (s *SessionStore) GetSession(ctx context.Context, id string) (*review.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, sess, err := s.findSession(id)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// ListSessions returns the index summaries for a feature.
func (s *SessionStore) ListSessions(ctx context.Context, feature string) ([]review.IndexEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.loadIndex(feature)
	if err != nil {
		return nil, err
	}
	return idx.Sessions, nil
}

// SubmitSession records a verdict, moves the session to its terminal
// status, updates the index entry, and clears the feature's active
// session id. Resubmitting an already-submitted session is not blocked.
func (s *SessionStore) SubmitSession(ctx context.Context, id string, verdict review.Verdict, summary string) (*review.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, ok := review.StatusForVerdict(verdict)
	if !ok {
		return nil, fmt.Errorf("%w: %s", review.ErrUnknownVerdict, verdict)
	}

	feature, sess, err := s.findSession(id)
	if err != nil {
		return nil, err
	}

	v := verdict
	sum := summary
	sess.Verdict = &v
	sess.Summary = &sum
	sess.Status = status
	sess.UpdatedAt = time.Now()

	if err := s.saveSession(feature, sess); err != nil {
		return nil, err
	}

	idx, err := s.loadIndex(feature)
	if err != nil {
		return nil, err
	}
	for i := range idx.Sessions {
		if idx.Sessions[i].ID == id {
			idx.Sessions[i].Status = sess.Status
			idx.Sessions[i].UpdatedAt = sess.UpdatedAt
		}
	}
	idx.ActiveSessionID = nil
	if err := writeJSON(s.indexPath(feature), idx); err != nil {
		return nil, fmt.Errorf("write index: %w", err)
	}

	s.events.Publish(eventbus.EventSessionSubmitted, eventbus.SessionPayload{Session: sess})
	return sess, nil
}

// UpdateSession overwrites a session wholesale and refreshes its index
// entry so status and timestamp summaries stay consistent.
func (s *SessionStore) UpdateSession(ctx context.Context, sess *review.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess.UpdatedAt = time.Now()
	if err := s.saveSession(sess.FeatureName, sess); err != nil {
		return err
	}

	idx, err := s.loadIndex(sess.FeatureName)
	if err != nil {
		return err
	}
	for i := range idx.Sessions {
		if idx.Sessions[i].ID == sess.ID {
			idx.Sessions[i].Status = sess.Status
			idx.Sessions[i].UpdatedAt = sess.UpdatedAt
		}
	}
	if err := writeJSON(s.indexPath(sess.FeatureName), idx); err != nil {
		return fmt.Errorf("write index: %w", err)
	}

	s.events.Publish(eventbus.EventSessionUpdated, eventbus.SessionPayload{Session: sess})
	return nil
}

// AddThread creates a thread with exactly one annotation and appends it
// to the session.
func (s *SessionStore) AddThread(ctx context.Context, sessionID, entityID string, uri *string, r review.Range, input review.AnnotationInput) (*review.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	feature, sess, err := s.findSession(sessionID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	thread := review.Thread{
		ID:          randid.Generate(8),
		EntityID:    entityID,
		URI:         uri,
		Range:       r,
		Status:      review.ThreadOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
		Annotations: []review.Annotation{newAnnotation(input, now)},
	}

	sess.Threads = append(sess.Threads, thread)
	sess.UpdatedAt = now
	if err := s.saveSession(feature, sess); err != nil {
		return nil, err
	}

	created := &sess.Threads[len(sess.Threads)-1]
	s.events.Publish(eventbus.EventThreadAdded, eventbus.ThreadPayload{
		Feature:   feature,
		SessionID: sess.ID,
		Thread:    created,
	})
	return created, nil
}

// ReplyToThread appends a comment annotation to a thread resolved by id
// alone. The reply is attributed to an llm author when agentID is
// non-empty, otherwise to a human.
func (s *SessionStore) ReplyToThread(ctx context.Context, threadID, body, agentID string) (*review.Annotation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	feature, sess, thread, err := s.findThread(threadID)
	if err != nil {
		return nil, err
	}

	author := review.Author{Type: review.AuthorHuman}
	if agentID != "" {
		author = review.Author{Type: review.AuthorLLM, Name: agentID, AgentID: agentID}
	}

	now := time.Now()
	ann := review.Annotation{
		ID:        randid.Generate(8),
		Type:      review.AnnotationComment,
		Body:      body,
		Author:    author,
		CreatedAt: now,
		UpdatedAt: now,
	}

	thread.Annotations = append(thread.Annotations, ann)
	thread.UpdatedAt = now
	sess.UpdatedAt = now
	if err := s.saveSession(feature, sess); err != nil {
		return nil, err
	}

	created := &thread.Annotations[len(thread.Annotations)-1]
	s.events.Publish(eventbus.EventAnnotationAdded, eventbus.AnnotationPayload{
		Feature:    feature,
		SessionID:  sess.ID,
		ThreadID:   thread.ID,
		Annotation: created,
	})
	return created, nil
}

// ResolveThread sets a thread's status to resolved.
func (s *SessionStore) ResolveThread(ctx context.Context, threadID string) (*review.Thread, error) {
	return s.setThreadStatus(threadID, review.ThreadResolved, eventbus.EventThreadResolved)
}

// UnresolveThread sets a thread's status back to open. Threads may toggle
// between open and resolved any number of times.
func (s *SessionStore) UnresolveThread(ctx context.Context, threadID string) (*review.Thread, error) {
	return s.setThreadStatus(threadID, review.ThreadOpen, eventbus.EventThreadUnresolved)
}

// MarkThreadOutdated flags a thread whose underlying code has since
// changed.
func (s *SessionStore) MarkThreadOutdated(ctx context.Context, threadID string) (*review.Thread, error) {
	return s.setThreadStatus(threadID, review.ThreadOutdated, eventbus.EventThreadOutdated)
}

func (s *SessionStore) setThreadStatus(threadID string, status review.ThreadStatus, event eventbus.Event) (*review.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	feature, sess, thread, err := s.findThread(threadID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	thread.Status = status
	thread.UpdatedAt = now
	sess.UpdatedAt = now
	if err := s.saveSession(feature, sess); err != nil {
		return nil, err
	}

	s.events.Publish(event, eventbus.ThreadPayload{
		Feature:   feature,
		SessionID: sess.ID,
		Thread:    thread,
	})
	return thread, nil
}

// DeleteThread removes a thread from an explicitly named session.
func (s *SessionStore) DeleteThread(ctx context.Context, sessionID, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	feature, sess, err := s.findSession(sessionID)
	if err != nil {
		return err
	}

	found := -1
	for i := range sess.Threads {
		if sess.Threads[i].ID == threadID {
			found = i
			break
		}
	}
	if found == -1 {
		return fmt.Errorf("%w: %s", review.ErrThreadNotFound, threadID)
	}

	sess.Threads = append(sess.Threads[:found], sess.Threads[found+1:]...)
	sess.UpdatedAt = time.Now()
	if err := s.saveSession(feature, sess); err != nil {
		return err
	}

	s.events.Publish(eventbus.EventThreadDeleted, eventbus.ThreadDeletedPayload{
		Feature:   feature,
		SessionID: sess.ID,
		ThreadID:  threadID,
	})
	return nil
}

// EditAnnotation updates an annotation's body.
func (s *SessionStore) EditAnnotation(ctx context.Context, threadID, annotationID, body string) (*review.Annotation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	feature, sess, thread, err := s.findThread(threadID)
	if err != nil {
		return nil, err
	}

	ann := thread.Annotation(annotationID)
	if ann == nil {
		return nil, fmt.Errorf("%w: %s", review.ErrAnnotationNotFound, annotationID)
	}

	now := time.Now()
	ann.Body = body
	ann.UpdatedAt = now
	thread.UpdatedAt = now
	sess.UpdatedAt = now
	if err := s.saveSession(feature, sess); err != nil {
		return nil, err
	}

	s.events.Publish(eventbus.EventAnnotationEdited, eventbus.AnnotationPayload{
		Feature:    feature,
		SessionID:  sess.ID,
		ThreadID:   thread.ID,
		Annotation: ann,
	})
	return ann, nil
}

// DeleteAnnotation removes an annotation; removing the last one removes
// the thread as well.
func (s *SessionStore) DeleteAnnotation(ctx context.Context, threadID, annotationID string) (review.DeleteAnnotationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	feature, sess, thread, err := s.findThread(threadID)
	if err != nil {
		return review.DeleteAnnotationResult{}, err
	}

	found := -1
	for i := range thread.Annotations {
		if thread.Annotations[i].ID == annotationID {
			found = i
			break
		}
	}
	if found == -1 {
		return review.DeleteAnnotationResult{}, fmt.Errorf("%w: %s", review.ErrAnnotationNotFound, annotationID)
	}

	now := time.Now()
	thread.Annotations = append(thread.Annotations[:found], thread.Annotations[found+1:]...)

	result := review.DeleteAnnotationResult{}
	if len(thread.Annotations) == 0 {
		// A thread with zero annotations does not exist.
		for i := range sess.Threads {
			if sess.Threads[i].ID == threadID {
				sess.Threads = append(sess.Threads[:i], sess.Threads[i+1:]...)
				break
			}
		}
		result.ThreadDeleted = true
	} else {
		thread.UpdatedAt = now
		result.Thread = thread
	}

	sess.UpdatedAt = now
	if err := s.saveSession(feature, sess); err != nil {
		return review.DeleteAnnotationResult{}, err
	}

	s.events.Publish(eventbus.EventAnnotationDeleted, eventbus.AnnotationDeletedPayload{
		Feature:       feature,
		SessionID:     sess.ID,
		ThreadID:      threadID,
		AnnotationID:  annotationID,
		ThreadDeleted: result.ThreadDeleted,
	})
	return result, nil
}

// MarkSuggestionApplied records that a suggestion's replacement has been
// applied to the target file.
func (s *SessionStore) MarkSuggestionApplied(ctx context.Context, threadID, annotationID string) (*review.Annotation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	feature, sess, thread, err := s.findThread(threadID)
	if err != nil {
		return nil, err
	}

	ann := thread.Annotation(annotationID)
	if ann == nil {
		return nil, fmt.Errorf("%w: %s", review.ErrAnnotationNotFound, annotationID)
	}
	if ann.Type != review.AnnotationSuggestion || ann.Suggestion == nil {
		return nil, fmt.Errorf("annotation %s is %w", annotationID, review.ErrNotSuggestion)
	}

	now := time.Now()
	if ann.Meta == nil {
		ann.Meta = &review.AnnotationMeta{}
	}
	ann.Meta.Applied = true
	ann.Meta.AppliedAt = &now
	ann.UpdatedAt = now
	thread.UpdatedAt = now
	sess.UpdatedAt = now
	if err := s.saveSession(feature, sess); err != nil {
		return nil, err
	}

	s.events.Publish(eventbus.EventSuggestionApplied, eventbus.AnnotationPayload{
		Feature:    feature,
		SessionID:  sess.ID,
		ThreadID:   thread.ID,
		Annotation: ann,
	})
	return ann, nil
}

// newAnnotation builds an annotation from caller input. A suggestion
// payload is kept only for suggestion-type annotations.
func newAnnotation(input review.AnnotationInput, now time.Time) review.Annotation {
	ann := review.Annotation{
		ID:        randid.Generate(8),
		Type:      input.Type,
		Body:      input.Body,
		Author:    input.Author,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if input.Type == review.AnnotationSuggestion {
		ann.Suggestion = input.Suggestion
	}
	return ann
}

// loadIndex reads a feature's review index, returning an empty versioned
// index when none exists yet.
func (s *SessionStore) loadIndex(feature string) (review.Index, error) {
	idx := review.Index{
		SchemaVersion: review.SchemaVersion,
		Sessions:      []review.IndexEntry{},
	}

	err := readJSON(s.indexPath(feature), &idx)
	if err != nil && !os.IsNotExist(err) {
		return review.Index{}, fmt.Errorf("read index: %w", err)
	}

	return idx, nil
}

func (s *SessionStore) saveSession(feature string, sess *review.Session) error {
	if err := writeJSON(s.sessionPath(feature, sess.ID), sess); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// findSession resolves a session by id, checking every feature directory.
func (s *SessionStore) findSession(id string) (string, *review.Session, error) {
	features, err := listFeatures(s.root, s.ignore)
	if err != nil {
		return "", nil, fmt.Errorf("scan features: %w", err)
	}

	for _, feature := range features {
		var sess review.Session
		err := readJSON(s.sessionPath(feature, id), &sess)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return "", nil, fmt.Errorf("read session: %w", err)
		}
		return feature, &sess, nil
	}

	return "", nil, fmt.Errorf("%w: %s", review.ErrSessionNotFound, id)
}

// findThread resolves a thread by id, scanning every session of every
// feature.
func (s *SessionStore) findThread(threadID string) (string, *review.Session, *review.Thread, error) {
	features, err := listFeatures(s.root, s.ignore)
	if err != nil {
		return "", nil, nil, fmt.Errorf("scan features: %w", err)
	}

	for _, feature := range features {
		reviewsDir := s.reviewsDir(feature)
		names, err := listReviewFiles(reviewsDir)
		if err != nil {
			return "", nil, nil, fmt.Errorf("scan reviews: %w", err)
		}

		for _, name := range names {
			var sess review.Session
			if err := readJSON(filepath.Join(reviewsDir, name), &sess); err != nil {
				s.log.Warn().Err(err).Str("file", name).Msg("skipping unreadable session file")
				continue
			}
			if thread := sess.Thread(threadID); thread != nil {
				return feature, &sess, thread, nil
			}
		}
	}

	return "", nil, nil, fmt.Errorf("%w: %s", review.ErrThreadNotFound, threadID)
}
