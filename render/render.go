// /home/krylon/go/src/github.com/blicero/glping/render/render.go
// -*- mode: go; coding: utf-8; -*-
// Created on 09. 06. 2024 by Benjamin Walkenhorst
// (c) 2024 Benjamin Walkenhorst
// Time-stamp: <2024-08-30 17:31:19 krylon>

// Package render turns normalized Activity records into the title,
// message and deep-link URL of a desktop notification.
//
// Rendering never fails. For shapes we do not recognize, we fall back
// to a generic "<type> <action> by <author>" message and the project
// page URL rather than suppressing the notification.
package render

import (
	"fmt"
	"log"
	"strings"

	"github.com/blicero/glping/common"
	"github.com/blicero/glping/logdomain"
	"github.com/blicero/glping/objects"
	"github.com/blicero/glping/objects/kind"
)

const noteLimit = 150

// Notification is a rendered, ready-to-dispatch notification.
type Notification struct {
	Title   string
	Message string
	URL     string
	Icon    string
}

// Renderer builds Notifications for one GitLab instance.
type Renderer struct {
	log     *log.Logger
	baseURL string
}

// New creates a Renderer for the given instance URL.
func New(baseURL string) (*Renderer, error) {
	var (
		err error
		r   = &Renderer{baseURL: strings.TrimRight(baseURL, "/")}
	)

	if r.log, err = common.GetLogger(logdomain.Render); err != nil {
		return nil, err
	}

	return r, nil
} // func New(baseURL string) (*Renderer, error)

// Render builds the Notification for one Activity. projectName is the
// human-readable project name used as the notification title,
// projectPath the namespace/path used to build URLs; either may be
// empty.
func (r *Renderer) Render(act *objects.Activity, projectName, projectPath string) Notification {
	var n = Notification{
		Title: projectName,
		Icon:  r.icon(act),
	}

	if n.Title == "" {
		n.Title = fmt.Sprintf("Project %d", act.ProjectID)
	}

	var projURL = r.projectURL(act.ProjectID, projectPath)

	switch act.Kind {
	case kind.Pipeline:
		n.Message = describePipeline(act)
		n.URL = act.Payload.WebURL
		if n.URL == "" {
			n.URL = fmt.Sprintf("%s/-/pipelines/%d", projURL, act.Target.ID)
		}
	case kind.Job:
		n.Message = describeJob(act)
		n.URL = act.Payload.WebURL
		if n.URL == "" {
			n.URL = projURL
		}
	case kind.Deployment:
		n.Message = describeDeployment(act)
		n.URL = projURL
		if act.Payload.Environment != "" {
			n.URL = fmt.Sprintf("%s/-/environments", projURL)
		}
	case kind.Release:
		n.Message = describeRelease(act)
		n.URL = fmt.Sprintf("%s/-/releases/%s", projURL, act.Payload.TagName)
	case kind.WikiPage:
		n.Message = describeWiki(act)
		n.URL = fmt.Sprintf("%s/-/wikis/%s", projURL, act.Payload.Slug)
	case kind.TagPush:
		n.Message = describeTagPush(act)
		n.URL = fmt.Sprintf("%s/-/tags/%s", projURL, act.Payload.TagName)
	case kind.Member:
		n.Message = describeMember(act)
		n.URL = fmt.Sprintf("%s/-/project_members", projURL)
	default:
		n.Message = describeEvent(act)
		n.URL = r.eventURL(act, projURL)
	}

	if !act.CreatedAt.IsZero() {
		n.Message = fmt.Sprintf("%s (%s)",
			n.Message,
			act.CreatedAt.Format(common.TimestampFormatMinute))
	}

	return n
} // func (r *Renderer) Render(act *objects.Activity, projectName, projectPath string) Notification

// icon prefers the actor's avatar, falling back to the instance's
// favicon so notifications carry a recognizable icon even for system
// activity.
func (r *Renderer) icon(act *objects.Activity) string {
	if act.Actor.AvatarURL != "" {
		return act.Actor.AvatarURL
	}

	return r.baseURL + "/favicon.ico"
} // func (r *Renderer) icon(act *objects.Activity) string

func (r *Renderer) projectURL(projectID int64, projectPath string) string {
	if projectPath == "" {
		projectPath = fmt.Sprintf("%d", projectID)
	}

	return fmt.Sprintf("%s/%s", r.baseURL, projectPath)
} // func (r *Renderer) projectURL(projectID int64, projectPath string) string

func isPushAction(action string) bool {
	switch action {
	case "pushed", "pushed new", "pushed to":
		return true
	default:
		return false
	}
} // func isPushAction(action string) bool

// eventURL builds the deep link for a native timeline event.
func (r *Renderer) eventURL(act *objects.Activity, projURL string) string {
	var p = &act.Payload

	if isPushAction(p.Action) {
		if p.CommitTo != "" {
			return fmt.Sprintf("%s/-/commit/%s", projURL, p.CommitTo)
		} else if strings.HasPrefix(p.Ref, "refs/heads/") {
			return fmt.Sprintf("%s/-/tree/%s",
				projURL,
				strings.TrimPrefix(p.Ref, "refs/heads/"))
		}
	}

	switch act.Target.Type {
	case "MergeRequest":
		if act.Target.IID != 0 {
			return fmt.Sprintf("%s/-/merge_requests/%d", projURL, act.Target.IID)
		}
		return fmt.Sprintf("%s/-/merge_requests", projURL)
	case "Issue":
		if act.Target.IID != 0 {
			return fmt.Sprintf("%s/-/issues/%d", projURL, act.Target.IID)
		}
		return fmt.Sprintf("%s/-/issues", projURL)
	case "Note", "DiffNote":
		if act.Target.ID != 0 {
			switch {
			case p.NoteableType == "MergeRequest" && p.NoteableIID != 0:
				return fmt.Sprintf("%s/-/merge_requests/%d#note_%d",
					projURL, p.NoteableIID, act.Target.ID)
			case p.NoteableType == "Issue" && p.NoteableIID != 0:
				return fmt.Sprintf("%s/-/issues/%d#note_%d",
					projURL, p.NoteableIID, act.Target.ID)
			case p.NoteableType == "Commit" && p.CommitID != "":
				return fmt.Sprintf("%s/-/commit/%s#note_%d",
					projURL, p.CommitID, act.Target.ID)
			}
		}
	case "Commit":
		if act.Target.ID != 0 {
			return fmt.Sprintf("%s/-/commit/%d", projURL, act.Target.ID)
		}
	case "Pipeline":
		if act.Target.ID != 0 {
			return fmt.Sprintf("%s/-/pipelines/%d", projURL, act.Target.ID)
		}
	}

	return projURL
} // func (r *Renderer) eventURL(act *objects.Activity, projURL string) string

// describeEvent builds the message for a native timeline event.
func describeEvent(act *objects.Activity) string {
	var (
		p    = &act.Payload
		who  = act.Actor.Name
		desc string
	)

	if who == "" {
		who = act.Actor.Username
	}

	if isPushAction(p.Action) && p.Ref != "" {
		return describePush(act, who)
	}

	switch act.Target.Type {
	case "MergeRequest":
		switch p.Action {
		case "opened":
			desc = fmt.Sprintf("%s opened a merge request", who)
		case "updated":
			desc = fmt.Sprintf("%s updated a merge request", who)
		case "closed":
			desc = fmt.Sprintf("%s closed a merge request", who)
		case "merged":
			desc = fmt.Sprintf("%s merged a merge request", who)
		case "reopened":
			desc = fmt.Sprintf("%s reopened a merge request", who)
		case "approved":
			desc = fmt.Sprintf("%s approved a merge request", who)
		case "unapproved":
			desc = fmt.Sprintf("%s revoked approval of a merge request", who)
		case "review_requested":
			desc = fmt.Sprintf("%s requested review of a merge request", who)
		case "ready":
			desc = fmt.Sprintf("%s marked a merge request as ready", who)
		case "draft":
			desc = fmt.Sprintf("%s marked a merge request as draft", who)
		default:
			desc = fmt.Sprintf("Merge request %s by %s", p.Action, who)
		}
		if p.Title != "" {
			desc += ": " + p.Title
		}
	case "Issue":
		switch p.Action {
		case "opened":
			desc = fmt.Sprintf("%s opened an issue", who)
		case "updated":
			desc = fmt.Sprintf("%s updated an issue", who)
		case "closed":
			desc = fmt.Sprintf("%s closed an issue", who)
		case "reopened":
			desc = fmt.Sprintf("%s reopened an issue", who)
		case "moved":
			desc = fmt.Sprintf("%s moved an issue", who)
		default:
			desc = fmt.Sprintf("Issue %s by %s", p.Action, who)
		}
		if p.Title != "" {
			desc += ": " + p.Title
		}
	case "Note", "DiffNote":
		var ctx string
		switch {
		case act.Target.Type == "DiffNote" && p.NoteableType == "MergeRequest" && p.NoteableIID != 0:
			ctx = fmt.Sprintf(" on code in MR #%d", p.NoteableIID)
		case act.Target.Type == "DiffNote":
			ctx = " on code"
		case p.NoteableType == "MergeRequest" && p.NoteableIID != 0:
			ctx = fmt.Sprintf(" on MR #%d", p.NoteableIID)
		case p.NoteableType == "Issue" && p.NoteableIID != 0:
			ctx = fmt.Sprintf(" on issue #%d", p.NoteableIID)
		case p.NoteableType == "Commit":
			ctx = " on a commit"
		}
		desc = fmt.Sprintf("%s commented%s", who, ctx)
		if p.NoteBody != "" {
			var body = p.NoteBody
			if len(body) > noteLimit {
				body = body[:noteLimit] + "..."
			}
			desc += ": " + body
		}
	case "Commit":
		desc = fmt.Sprintf("New commit by %s", who)
	default:
		desc = fmt.Sprintf("%s %s by %s", act.Target.Type, p.Action, who)
	}

	return desc
} // func describeEvent(act *objects.Activity) string

// describePush builds the message for a branch push.
func describePush(act *objects.Activity, who string) string {
	var (
		p    = &act.Payload
		desc string
	)

	if strings.HasPrefix(p.Ref, "refs/heads/") || !strings.Contains(p.Ref, "/") {
		var branch = strings.TrimPrefix(p.Ref, "refs/heads/")
		switch {
		case p.Action == "created" && p.CommitCount == 0:
			desc = fmt.Sprintf("%s created branch %s", who, branch)
		case p.Action == "removed":
			desc = fmt.Sprintf("%s deleted branch %s", who, branch)
		case p.CommitCount > 1:
			desc = fmt.Sprintf("%s pushed %d commits to %s", who, p.CommitCount, branch)
		default:
			desc = fmt.Sprintf("%s pushed to %s", who, branch)
		}
	} else {
		desc = fmt.Sprintf("New commits by %s", who)
	}

	if p.CommitTitle != "" {
		desc += ": " + p.CommitTitle
	}

	return desc
} // func describePush(act *objects.Activity, who string) string

func describePipeline(act *objects.Activity) string {
	var desc = fmt.Sprintf("Pipeline #%d %s",
		act.Target.ID,
		statusWord(act.Payload.Status))

	if act.Payload.Ref != "" {
		desc += " for " + act.Payload.Ref
	}

	return desc
} // func describePipeline(act *objects.Activity) string

func describeJob(act *objects.Activity) string {
	var desc string

	if act.Payload.JobName != "" {
		desc = fmt.Sprintf("Job '%s' %s",
			act.Payload.JobName,
			statusWord(act.Payload.Status))
	} else {
		desc = fmt.Sprintf("Job #%d %s",
			act.Target.ID,
			statusWord(act.Payload.Status))
	}

	if act.Payload.Stage != "" {
		desc += fmt.Sprintf(" (stage: %s)", act.Payload.Stage)
	}

	return desc
} // func describeJob(act *objects.Activity) string

func describeDeployment(act *objects.Activity) string {
	var desc = fmt.Sprintf("Deployment #%d %s",
		act.Target.ID,
		statusWord(act.Payload.Status))

	if act.Payload.Environment != "" {
		desc += " to " + act.Payload.Environment
	}

	return desc
} // func describeDeployment(act *objects.Activity) string

func describeRelease(act *objects.Activity) string {
	var desc = fmt.Sprintf("Release %s published", act.Payload.TagName)

	if act.Payload.Title != "" && act.Payload.Title != act.Payload.TagName {
		desc += ": " + act.Payload.Title
	}

	desc += " by " + act.Actor.Name

	return desc
} // func describeRelease(act *objects.Activity) string

func describeWiki(act *objects.Activity) string {
	var verb string

	switch act.Payload.Action {
	case "created":
		verb = "created"
	case "destroyed", "deleted":
		verb = "deleted"
	default:
		verb = "updated"
	}

	return fmt.Sprintf("%s %s wiki page '%s'",
		act.Actor.Name,
		verb,
		act.Payload.Title)
} // func describeWiki(act *objects.Activity) string

func describeTagPush(act *objects.Activity) string {
	var (
		p    = &act.Payload
		desc string
	)

	switch p.Action {
	case "created":
		desc = fmt.Sprintf("%s created tag %s", act.Actor.Name, p.TagName)
	case "removed":
		desc = fmt.Sprintf("%s deleted tag %s", act.Actor.Name, p.TagName)
	default:
		desc = fmt.Sprintf("%s updated tag %s", act.Actor.Name, p.TagName)
	}

	if p.CommitTitle != "" {
		desc += ": " + p.CommitTitle
	}

	return desc
} // func describeTagPush(act *objects.Activity) string

func describeMember(act *objects.Activity) string {
	return fmt.Sprintf("%s is now a project member (%s)",
		act.Actor.Name,
		accessLevelName(act.Payload.AccessLevel))
} // func describeMember(act *objects.Activity) string

// statusWord maps CI status codes to readable phrases.
func statusWord(status string) string {
	switch status {
	case "success":
		return "succeeded"
	case "failed":
		return "failed"
	case "running":
		return "is running"
	case "pending":
		return "is pending"
	case "created":
		return "was created"
	case "canceled":
		return "was canceled"
	case "skipped":
		return "was skipped"
	case "manual":
		return "awaits manual action"
	default:
		return status
	}
} // func statusWord(status string) string

// accessLevelName maps GitLab's numeric access levels to role names.
func accessLevelName(level int) string {
	switch level {
	case 5:
		return "Minimal Access"
	case 10:
		return "Guest"
	case 20:
		return "Reporter"
	case 30:
		return "Developer"
	case 40:
		return "Maintainer"
	case 50:
		return "Owner"
	default:
		return fmt.Sprintf("access level %d", level)
	}
} // func accessLevelName(level int) string
