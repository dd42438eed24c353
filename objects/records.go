// /home/krylon/go/src/github.com/blicero/glping/objects/records.go
// -*- mode: go; coding: utf-8; -*-
// Created on 03. 06. 2024 by Benjamin Walkenhorst
// (c) 2024 Benjamin Walkenhorst
// Time-stamp: <2024-08-30 09:51:26 krylon>

// Package objects provides the data types used by the application:
// the raw records we receive from the GitLab API, one type per source
// kind, and the normalized Activity record everything is mapped to.
package objects

//go:generate ffjson records.go

// User is the author/actor attached to most records. CI/CD records
// may lack one entirely.
type User struct {
	Name      string `json:"name"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

// PushData is the push-specific part of a native timeline event.
type PushData struct {
	CommitCount int    `json:"commit_count"`
	Action      string `json:"action"`
	RefType     string `json:"ref_type"`
	Ref         string `json:"ref"`
	CommitFrom  string `json:"commit_from"`
	CommitTo    string `json:"commit_to"`
	CommitTitle string `json:"commit_title"`
}

// Note is the comment-specific part of a native timeline event.
type Note struct {
	Body         string `json:"body"`
	NoteableType string `json:"noteable_type"`
	NoteableIID  int64  `json:"noteable_iid"`
	CommitID     string `json:"commit_id"`
}

// Event is a native timeline event as returned by
// /projects/:id/events. These carry an integer ID the server hands
// out in non-decreasing order.
type Event struct {
	ID          int64     `json:"id"`
	ProjectID   int64     `json:"project_id"`
	ActionName  string    `json:"action_name"`
	TargetType  string    `json:"target_type"`
	TargetID    int64     `json:"target_id"`
	TargetIID   int64     `json:"target_iid"`
	TargetTitle string    `json:"target_title"`
	CreatedAt   string    `json:"created_at"`
	Author      User      `json:"author"`
	PushData    *PushData `json:"push_data"`
	Note        *Note     `json:"note"`
}

// Pipeline is a CI pipeline as returned by /projects/:id/pipelines.
// The same pipeline ID shows up repeatedly as its status progresses.
type Pipeline struct {
	ID        int64  `json:"id"`
	Status    string `json:"status"`
	Ref       string `json:"ref"`
	SHA       string `json:"sha"`
	Source    string `json:"source"`
	WebURL    string `json:"web_url"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
	User      *User  `json:"user"`
}

// Job is a CI job as returned by /projects/:id/jobs.
type Job struct {
	ID        int64  `json:"id"`
	Status    string `json:"status"`
	Name      string `json:"name"`
	Stage     string `json:"stage"`
	Ref       string `json:"ref"`
	Tag       bool   `json:"tag"`
	WebURL    string `json:"web_url"`
	CreatedAt string `json:"created_at"`
	User      *User  `json:"user"`
}

// Environment is the environment a Deployment goes to.
type Environment struct {
	Name string `json:"name"`
}

// Deployment is a deployment as returned by /projects/:id/deployments.
type Deployment struct {
	ID          int64       `json:"id"`
	IID         int64       `json:"iid"`
	Status      string      `json:"status"`
	Ref         string      `json:"ref"`
	Environment Environment `json:"environment"`
	CreatedAt   string      `json:"created_at"`
	UpdatedAt   string      `json:"updated_at"`
	User        *User       `json:"user"`
}

// Release is a release as returned by /projects/:id/releases.
type Release struct {
	TagName    string `json:"tag_name"`
	Name       string `json:"name"`
	ReleasedAt string `json:"released_at"`
	CreatedAt  string `json:"created_at"`
	Author     *User  `json:"author"`
}

// Member is a project member as returned by /projects/:id/members.
// We synthesize a membership-change record from the access level.
type Member struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	Name        string `json:"name"`
	AvatarURL   string `json:"avatar_url"`
	AccessLevel int    `json:"access_level"`
	CreatedAt   string `json:"created_at"`
}

// Project is the subset of the project record we care about.
type Project struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	NameWithNamespace string `json:"name_with_namespace"`
	PathWithNamespace string `json:"path_with_namespace"`
	LastActivityAt    string `json:"last_activity_at"`
}

// DisplayName returns the most human-friendly name available for the
// Project.
func (p *Project) DisplayName() string {
	if p.NameWithNamespace != "" {
		return p.NameWithNamespace
	} else if p.Name != "" {
		return p.Name
	}

	return "(unnamed project)"
} // func (p *Project) DisplayName() string
