package stores

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/margin-sh/margin/internal/core/plan"
	"github.com/margin-sh/margin/internal/core/review"
	"github.com/margin-sh/margin/pkg/randid"
)

// Plan comments have passed through several on-disk shapes: the oldest
// records anchor to a bare "line" number and keep replies as plain
// strings; later ones omit author or timestamp. migrateComment normalizes
// one raw record into the current schema on read. Decoding is per-field
// and tolerant: short of a missing id (synthesized) or body (left empty),
// malformed input is repaired with defaults rather than rejected.
//
// The fallback time stands in for a missing timestamp; callers pass the
// comments file's last-modified time, or now when the stat failed.
func migrateComment(raw json.RawMessage, fallback time.Time) plan.Comment {
	fields := map[string]json.RawMessage{}
	_ = json.Unmarshal(raw, &fields)

	c := plan.Comment{
		ID:       decodeString(fields["id"]),
		Body:     decodeString(fields["body"]),
		Author:   plan.Author(decodeString(fields["author"])),
		Resolved: decodeBool(fields["resolved"]),
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Author == "" {
		c.Author = plan.AuthorHuman
	}

	// Anchor: a current-schema range, a legacy numeric line synthesized
	// into a zero-width range, or line zero.
	var r review.Range
	if err := json.Unmarshal(fields["range"], &r); err == nil {
		c.Range = r
	} else if line, ok := decodeInt(fields["line"]); ok {
		pos := review.Position{Line: line}
		c.Range = review.Range{Start: pos, End: pos}
	}

	ts, ok := decodeTime(fields["timestamp"])
	if !ok {
		ts = fallback
	}
	c.Timestamp = ts

	var rawReplies []json.RawMessage
	_ = json.Unmarshal(fields["replies"], &rawReplies)
	for _, rawReply := range rawReplies {
		c.Replies = append(c.Replies, migrateReply(rawReply, c.Timestamp))
	}

	return c
}

// migrateReply normalizes one reply record. The oldest format stored
// replies as bare strings; those become full reply objects authored by a
// human at the parent comment's timestamp.
func migrateReply(raw json.RawMessage, parentTime time.Time) plan.Reply {
	var body string
	if err := json.Unmarshal(raw, &body); err == nil {
		return plan.Reply{
			ID:        randid.Generate(8),
			Body:      body,
			Author:    plan.AuthorHuman,
			Timestamp: parentTime,
		}
	}

	fields := map[string]json.RawMessage{}
	_ = json.Unmarshal(raw, &fields)

	reply := plan.Reply{
		ID:     decodeString(fields["id"]),
		Body:   decodeString(fields["body"]),
		Author: plan.Author(decodeString(fields["author"])),
	}
	if reply.ID == "" {
		reply.ID = randid.Generate(8)
	}
	if reply.Author == "" {
		reply.Author = plan.AuthorHuman
	}

	if ts, ok := decodeTime(fields["timestamp"]); ok {
		reply.Timestamp = ts
	} else {
		reply.Timestamp = parentTime
	}

	return reply
}

func decodeString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func decodeBool(raw json.RawMessage) bool {
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false
	}
	return b
}

func decodeInt(raw json.RawMessage) (int, bool) {
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, false
	}
	return n, true
}

// decodeTime accepts an RFC3339 string or a legacy unix-millisecond
// number.
func decodeTime(raw json.RawMessage) (time.Time, bool) {
	var t time.Time
	if err := json.Unmarshal(raw, &t); err == nil {
		return t, true
	}

	var millis int64
	if err := json.Unmarshal(raw, &millis); err == nil && millis > 0 {
		return time.UnixMilli(millis), true
	}

	return time.Time{}, false
}
