// /home/krylon/go/src/github.com/blicero/glping/history/02_history_crud_test.go
// -*- mode: go; coding: utf-8; -*-
// Created on 18. 06. 2024 by Benjamin Walkenhorst
// (c) 2024 Benjamin Walkenhorst
// Time-stamp: <2024-08-30 23:20:11 krylon>

package history

import (
	"fmt"
	"testing"
	"time"

	"github.com/blicero/glping/common"
)

const itemCnt = 16

var items []*Entry

func init() {
	items = make([]*Entry, itemCnt)

	var now = common.Now()

	for i := range items {
		var project = "group/alpha"
		if i%2 == 1 {
			project = "group/beta"
		}

		items[i] = &Entry{
			Timestamp: now.Add(-time.Minute * time.Duration(itemCnt-i)),
			Project:   project,
			Identity:  fmt.Sprintf("pipeline_%d_success", i),
			Title:     project,
			Message:   fmt.Sprintf("Pipeline #%d succeeded for main", i),
			URL:       fmt.Sprintf("https://gitlab.example.com/%s/-/pipelines/%d", project, i),
		}
	}
} // func init()

func TestNotificationAdd(t *testing.T) {
	if db == nil {
		t.SkipNow()
	}

	for _, e := range items {
		var err error

		if err = db.NotificationAdd(e); err != nil {
			t.Fatalf("Cannot add notification %q: %s",
				e.Message,
				err.Error())
		} else if e.ID == 0 {
			t.Errorf("ID of history entry %q is 0", e.Message)
		}
	}
} // func TestNotificationAdd(t *testing.T)

func TestNotificationCount(t *testing.T) {
	if db == nil {
		t.SkipNow()
	}

	var cnt, err = db.NotificationCount()
	if err != nil {
		t.Fatalf("Cannot count history entries: %s", err.Error())
	} else if cnt != itemCnt {
		t.Errorf("Expected %d history entries, got %d", itemCnt, cnt)
	}
} // func TestNotificationCount(t *testing.T)

func TestNotificationGetRecent(t *testing.T) {
	if db == nil {
		t.SkipNow()
	}

	var entries, err = db.NotificationGetRecent(5)
	if err != nil {
		t.Fatalf("Cannot fetch recent notifications: %s", err.Error())
	} else if len(entries) != 5 {
		t.Fatalf("Expected 5 entries, got %d", len(entries))
	}

	// Newest first.
	for i := 1; i < len(entries); i++ {
		if entries[i].Timestamp.After(entries[i-1].Timestamp) {
			t.Errorf("Entries are not sorted newest first: %s before %s",
				entries[i-1].Timestamp,
				entries[i].Timestamp)
		}
	}

	if entries[0].Message != items[itemCnt-1].Message {
		t.Errorf("Expected newest entry %q, got %q",
			items[itemCnt-1].Message,
			entries[0].Message)
	}
} // func TestNotificationGetRecent(t *testing.T)

func TestNotificationGetByProject(t *testing.T) {
	if db == nil {
		t.SkipNow()
	}

	var entries, err = db.NotificationGetByProject("group/beta", itemCnt)
	if err != nil {
		t.Fatalf("Cannot fetch notifications for group/beta: %s", err.Error())
	} else if len(entries) != itemCnt/2 {
		t.Fatalf("Expected %d entries, got %d", itemCnt/2, len(entries))
	}

	for _, e := range entries {
		if e.Project != "group/beta" {
			t.Errorf("Entry for wrong project %q", e.Project)
		}
	}
} // func TestNotificationGetByProject(t *testing.T)
