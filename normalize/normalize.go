// /home/krylon/go/src/github.com/blicero/glping/normalize/normalize.go
// -*- mode: go; coding: utf-8; -*-
// Created on 05. 06. 2024 by Benjamin Walkenhorst
// (c) 2024 Benjamin Walkenhorst
// Time-stamp: <2024-08-30 12:02:48 krylon>

// Package normalize maps the heterogeneous source records the GitLab
// API hands us into the one Activity shape the change detector and
// the renderer consume.
//
// Records are never dropped here. A record whose timestamp cannot be
// parsed comes out with a zero CreatedAt, which the detector treats
// as passing every date filter, so a malformed timestamp can hide no
// activity.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/blicero/glping/objects"
	"github.com/blicero/glping/objects/kind"
)

// systemActor stands in when a CI/CD record has no user attached, so
// the renderer never has to nil-check the actor.
var systemActor = objects.Actor{
	Name:     "CI/CD System",
	Username: "system",
}

var timeFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime parses the timestamp formats GitLab emits, tolerating a
// trailing "Z" and timezone-naive strings (treated as UTC). It
// returns the zero time if the string cannot be parsed.
func ParseTime(stamp string) time.Time {
	if stamp == "" {
		return time.Time{}
	}

	for _, layout := range timeFormats {
		if t, err := time.Parse(layout, stamp); err == nil {
			return t.UTC()
		}
	}

	return time.Time{}
} // func ParseTime(stamp string) time.Time

func actorFromUser(u *objects.User) objects.Actor {
	if u == nil || (u.Name == "" && u.Username == "") {
		return systemActor
	}

	return objects.Actor{
		Name:      u.Name,
		Username:  u.Username,
		AvatarURL: u.AvatarURL,
	}
} // func actorFromUser(u *objects.User) objects.Actor

func isPush(actionName string) bool {
	switch actionName {
	case "pushed", "pushed new", "pushed to":
		return true
	default:
		return false
	}
} // func isPush(actionName string) bool

// Event normalizes a native timeline event. Two flavors of native
// event do not stay native: wiki page edits and tag pushes are
// diverted to the composite-identity path, because the same page or
// tag can be touched repeatedly and each touch is worth a separate
// notification. They keep their native event ID, so the ID watermark
// still applies to them on top of the ledger.
func Event(ev *objects.Event) objects.Activity {
	var act = objects.Activity{
		ProjectID: ev.ProjectID,
		Kind:      kind.Event,
		EventID:   ev.ID,
		CreatedAt: ParseTime(ev.CreatedAt),
		Actor: objects.Actor{
			Name:      ev.Author.Name,
			Username:  ev.Author.Username,
			AvatarURL: ev.Author.AvatarURL,
		},
		Target: objects.TargetRef{
			Type: ev.TargetType,
			ID:   ev.TargetID,
			IID:  ev.TargetIID,
		},
		Payload: objects.ActivityPayload{
			Action: ev.ActionName,
			Title:  ev.TargetTitle,
		},
	}

	if act.Actor.Name == "" && act.Actor.Username == "" {
		act.Actor = systemActor
	}

	if ev.PushData != nil {
		act.Payload.Ref = ev.PushData.Ref
		act.Payload.CommitCount = ev.PushData.CommitCount
		act.Payload.CommitFrom = ev.PushData.CommitFrom
		act.Payload.CommitTo = ev.PushData.CommitTo
		act.Payload.CommitTitle = ev.PushData.CommitTitle

		if isPush(ev.ActionName) &&
			(ev.PushData.RefType == "tag" || strings.HasPrefix(ev.PushData.Ref, "refs/tags/")) {
			var tag = strings.TrimPrefix(ev.PushData.Ref, "refs/tags/")
			act.Kind = kind.TagPush
			act.Payload.TagName = tag
			act.Payload.Action = ev.PushData.Action
			act.Identity = fmt.Sprintf("%s_%s_%s",
				kind.TagPush.Label(),
				tag,
				ev.PushData.Action)
		}
	}

	if ev.Note != nil {
		act.Payload.NoteBody = ev.Note.Body
		act.Payload.NoteableType = ev.Note.NoteableType
		act.Payload.NoteableIID = ev.Note.NoteableIID
		act.Payload.CommitID = ev.Note.CommitID
	}

	if strings.HasPrefix(ev.TargetType, "WikiPage") {
		act.Kind = kind.WikiPage
		act.Payload.Slug = slugify(ev.TargetTitle)
		act.Identity = fmt.Sprintf("%s_%s_%s",
			kind.WikiPage.Label(),
			act.Payload.Slug,
			ev.ActionName)
	}

	return act
} // func Event(ev *objects.Event) objects.Activity

// Pipeline normalizes a CI pipeline. The identity includes the
// status, so every status transition of the same pipeline is a fresh
// notification, while refetching the same status is not.
func Pipeline(p *objects.Pipeline, projectID int64) objects.Activity {
	return objects.Activity{
		ProjectID: projectID,
		Kind:      kind.Pipeline,
		Identity: fmt.Sprintf("%s_%d_%s",
			kind.Pipeline.Label(),
			p.ID,
			p.Status),
		CreatedAt: ParseTime(p.CreatedAt),
		Actor:     actorFromUser(p.User),
		Target: objects.TargetRef{
			Type: "Pipeline",
			ID:   p.ID,
			IID:  p.ID,
		},
		Payload: objects.ActivityPayload{
			Status: p.Status,
			Ref:    p.Ref,
			WebURL: p.WebURL,
		},
	}
} // func Pipeline(p *objects.Pipeline, projectID int64) objects.Activity

// Job normalizes a CI job.
func Job(j *objects.Job, projectID int64) objects.Activity {
	return objects.Activity{
		ProjectID: projectID,
		Kind:      kind.Job,
		Identity: fmt.Sprintf("%s_%d_%s",
			kind.Job.Label(),
			j.ID,
			j.Status),
		CreatedAt: ParseTime(j.CreatedAt),
		Actor:     actorFromUser(j.User),
		Target: objects.TargetRef{
			Type: "Job",
			ID:   j.ID,
			IID:  j.ID,
		},
		Payload: objects.ActivityPayload{
			Status:  j.Status,
			JobName: j.Name,
			Stage:   j.Stage,
			Ref:     j.Ref,
			WebURL:  j.WebURL,
		},
	}
} // func Job(j *objects.Job, projectID int64) objects.Activity

// Deployment normalizes a deployment.
func Deployment(d *objects.Deployment, projectID int64) objects.Activity {
	return objects.Activity{
		ProjectID: projectID,
		Kind:      kind.Deployment,
		Identity: fmt.Sprintf("%s_%d_%s",
			kind.Deployment.Label(),
			d.ID,
			d.Status),
		CreatedAt: ParseTime(d.CreatedAt),
		Actor:     actorFromUser(d.User),
		Target: objects.TargetRef{
			Type: "Deployment",
			ID:   d.ID,
			IID:  d.IID,
		},
		Payload: objects.ActivityPayload{
			Status:      d.Status,
			Ref:         d.Ref,
			Environment: d.Environment.Name,
		},
	}
} // func Deployment(d *objects.Deployment, projectID int64) objects.Activity

// Release normalizes a release. Releases have no status; the tag
// name is their identity.
func Release(r *objects.Release, projectID int64) objects.Activity {
	var stamp = r.ReleasedAt
	if stamp == "" {
		stamp = r.CreatedAt
	}

	return objects.Activity{
		ProjectID: projectID,
		Kind:      kind.Release,
		Identity: fmt.Sprintf("%s_%s_released",
			kind.Release.Label(),
			r.TagName),
		CreatedAt: ParseTime(stamp),
		Actor:     actorFromUser(r.Author),
		Target: objects.TargetRef{
			Type: "Release",
		},
		Payload: objects.ActivityPayload{
			TagName: r.TagName,
			Title:   r.Name,
		},
	}
} // func Release(r *objects.Release, projectID int64) objects.Activity

// Member normalizes a project member into a membership-change
// record. The identity includes the access level, so promoting or
// demoting a member is a fresh notification. The API's created_at is
// the date the member joined, not the date of the change, so the
// record carries no timestamp at all: the ledger alone deduplicates
// it, and a promotion of a long-standing member still gets through
// the date guard.
func Member(m *objects.Member, projectID int64) objects.Activity {
	return objects.Activity{
		ProjectID: projectID,
		Kind:      kind.Member,
		Identity: fmt.Sprintf("%s_%d_%d",
			kind.Member.Label(),
			m.ID,
			m.AccessLevel),
		Actor: objects.Actor{
			Name:      m.Name,
			Username:  m.Username,
			AvatarURL: m.AvatarURL,
		},
		Target: objects.TargetRef{
			Type: "Member",
			ID:   m.ID,
		},
		Payload: objects.ActivityPayload{
			AccessLevel: m.AccessLevel,
		},
	}
} // func Member(m *objects.Member, projectID int64) objects.Activity

func slugify(title string) string {
	var slug = strings.ToLower(strings.TrimSpace(title))
	slug = strings.ReplaceAll(slug, " ", "-")
	return slug
} // func slugify(title string) string
