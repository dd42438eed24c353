// /home/krylon/go/src/github.com/blicero/glping/objects/kind/kind.go
// -*- mode: go; coding: utf-8; -*-
// Created on 03. 06. 2024 by Benjamin Walkenhorst
// (c) 2024 Benjamin Walkenhorst
// Time-stamp: <2024-07-02 17:21:48 krylon>

// Package kind provides symbolic constants for the kinds of activity
// we process. Every source record is mapped to exactly one Kind.
package kind

//go:generate stringer -type=ID

// ID identifies a kind of activity.
type ID uint8

// Event is a native timeline event; all the others are synthesized
// from CI/CD-like objects that lack a native event identity.
const (
	Event ID = iota
	Pipeline
	Job
	Deployment
	Release
	WikiPage
	TagPush
	Member
)

// Label returns the lowercase label used in composite dedup identities.
func (id ID) Label() string {
	switch id {
	case Event:
		return "event"
	case Pipeline:
		return "pipeline"
	case Job:
		return "job"
	case Deployment:
		return "deployment"
	case Release:
		return "release"
	case WikiPage:
		return "wiki"
	case TagPush:
		return "tag"
	case Member:
		return "member"
	default:
		return "unknown"
	}
} // func (id ID) Label() string
