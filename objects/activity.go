// /home/krylon/go/src/github.com/blicero/glping/objects/activity.go
// -*- mode: go; coding: utf-8; -*-
// Created on 03. 06. 2024 by Benjamin Walkenhorst
// (c) 2024 Benjamin Walkenhorst
// Time-stamp: <2024-08-30 10:14:55 krylon>

package objects

import (
	"time"

	"github.com/blicero/glping/objects/kind"
)

// Actor is the person (or system) an Activity is attributed to.
type Actor struct {
	Name      string `json:"name"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

// TargetRef points at the object an Activity is about. IID is the
// public per-project sequence number where the API exposes one
// distinct from the internal ID.
type TargetRef struct {
	Type string `json:"type"`
	ID   int64  `json:"id"`
	IID  int64  `json:"iid"`
}

// ActivityPayload carries the kind-specific fields the renderer needs
// to build a human sentence and a deep-link URL. Only the fields
// relevant to the Activity's Kind are populated.
type ActivityPayload struct {
	Action       string `json:"action,omitempty"`
	Ref          string `json:"ref,omitempty"`
	CommitCount  int    `json:"commit_count,omitempty"`
	CommitFrom   string `json:"commit_from,omitempty"`
	CommitTo     string `json:"commit_to,omitempty"`
	CommitTitle  string `json:"commit_title,omitempty"`
	Title        string `json:"title,omitempty"`
	NoteBody     string `json:"note_body,omitempty"`
	NoteableType string `json:"noteable_type,omitempty"`
	NoteableIID  int64  `json:"noteable_iid,omitempty"`
	CommitID     string `json:"commit_id,omitempty"`
	Status       string `json:"status,omitempty"`
	JobName      string `json:"job_name,omitempty"`
	Stage        string `json:"stage,omitempty"`
	Environment  string `json:"environment,omitempty"`
	TagName      string `json:"tag_name,omitempty"`
	Slug         string `json:"slug,omitempty"`
	AccessLevel  int    `json:"access_level,omitempty"`
	WebURL       string `json:"web_url,omitempty"`
}

// Activity is the normalized record all eight source kinds are
// converted into before dedup and rendering.
//
// Native timeline events carry their integer EventID and an empty
// Identity; they are deduplicated against the per-project ID
// watermark. Synthesized records carry a composite Identity string
// and are deduplicated against the per-project ledger. Records
// diverted out of the native feed (wiki pages, tag pushes) carry
// both, and both guards apply.
type Activity struct {
	ProjectID int64           `json:"project_id"`
	Kind      kind.ID         `json:"kind"`
	EventID   int64           `json:"event_id,omitempty"`
	Identity  string          `json:"identity,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	Actor     Actor           `json:"actor"`
	Target    TargetRef       `json:"target"`
	Payload   ActivityPayload `json:"payload"`
}

// HasTimestamp returns true if the Activity has a usable timestamp.
// A record whose timestamp could not be parsed still flows through
// the pipeline, it just passes every date filter.
func (a *Activity) HasTimestamp() bool {
	return !a.CreatedAt.IsZero()
} // func (a *Activity) HasTimestamp() bool

// Before orders Activities chronologically, ties broken by ascending
// numeric ID. Records without a timestamp sort first.
func (a *Activity) Before(other *Activity) bool {
	switch {
	case a.CreatedAt.Equal(other.CreatedAt):
		if a.EventID != other.EventID {
			return a.EventID < other.EventID
		}
		return a.Target.ID < other.Target.ID
	default:
		return a.CreatedAt.Before(other.CreatedAt)
	}
} // func (a *Activity) Before(other *Activity) bool
