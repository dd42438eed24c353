// /home/krylon/go/src/github.com/blicero/glping/logdomain/logdomain.go
// -*- mode: go; coding: utf-8; -*-
// Created on 02. 06. 2024 by Benjamin Walkenhorst
// (c) 2024 Benjamin Walkenhorst
// Time-stamp: <2024-07-19 18:02:31 krylon>

// Package logdomain provides symbolic constants to identify the
// various pieces of the application that want to do logging.
package logdomain

// ID represents a log source.
type ID uint8

// These constants identify the various log sources.
const (
	Common ID = iota
	Config
	Store
	Fetch
	Detect
	Normalize
	Notify
	Render
	History
	Watcher
	Web
)

func (id ID) String() string {
	switch id {
	case Common:
		return "Common"
	case Config:
		return "Config"
	case Store:
		return "Store"
	case Fetch:
		return "Fetch"
	case Detect:
		return "Detect"
	case Normalize:
		return "Normalize"
	case Notify:
		return "Notify"
	case Render:
		return "Render"
	case History:
		return "History"
	case Watcher:
		return "Watcher"
	case Web:
		return "Web"
	default:
		return "(Unknown)"
	}
} // func (id ID) String() string

// AllDomains returns a slice of all the known log sources.
func AllDomains() []ID {
	return []ID{
		Common,
		Config,
		Store,
		Fetch,
		Detect,
		Normalize,
		Notify,
		Render,
		History,
		Watcher,
		Web,
	}
} // func AllDomains() []ID
