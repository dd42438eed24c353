// /home/krylon/go/src/github.com/blicero/glping/history/query/query.go
// -*- mode: go; coding: utf-8; -*-
// Created on 11. 06. 2024 by Benjamin Walkenhorst
// (c) 2024 Benjamin Walkenhorst
// Time-stamp: <2024-06-11 18:22:40 krylon>

// Package query provides symbolic constants for identifying SQL queries.
package query

//go:generate stringer -type=ID

type ID uint8

const (
	NotificationAdd ID = iota
	NotificationGetRecent
	NotificationGetByProject
	NotificationCount
)
