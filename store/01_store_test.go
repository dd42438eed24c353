// /home/krylon/go/src/github.com/blicero/glping/store/01_store_test.go
// -*- mode: go; coding: utf-8; -*-
// Created on 15. 06. 2024 by Benjamin Walkenhorst
// (c) 2024 Benjamin Walkenhorst
// Time-stamp: <2024-08-30 21:33:40 krylon>

package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/blicero/glping/common"
)

var (
	testDir string
	st      *Store
)

func init() {
	var err error

	if testDir, err = os.MkdirTemp("", "glping_store_test"); err != nil {
		panic(err)
	} else if err = common.SetBaseDir(testDir); err != nil {
		panic(err)
	}
} // func init()

func cachePath() string {
	return filepath.Join(testDir, "cache.json")
} // func cachePath() string

func TestOpenFresh(t *testing.T) {
	var err error

	if st, err = Open(cachePath(), DefaultBacklog); err != nil {
		st = nil
		t.Fatalf("Cannot open store at %s: %s",
			cachePath(),
			err.Error())
	} else if !st.IsFresh() {
		t.Error("Store bootstrapped from a missing file should be fresh")
	}

	var (
		want = common.Now().Add(-DefaultBacklog)
		got  = st.LastChecked()
		diff = got.Sub(want)
	)

	if diff < -time.Minute || diff > time.Minute {
		t.Errorf("Bootstrapped watermark is %s, expected roughly %s",
			got.Format(common.TimestampFormat),
			want.Format(common.TimestampFormat))
	}
} // func TestOpenFresh(t *testing.T)

func TestWatermarkMonotonic(t *testing.T) {
	if st == nil {
		t.SkipNow()
	}

	var (
		forward  = common.Now().Add(time.Hour)
		backward = common.Now().Add(-time.Hour * 48)
	)

	st.AdvanceLastChecked(forward)

	if got := st.LastChecked(); !got.Equal(forward) {
		t.Errorf("Watermark did not advance: got %s, expected %s",
			got.Format(common.TimestampFormat),
			forward.Format(common.TimestampFormat))
	}

	st.AdvanceLastChecked(backward)

	if got := st.LastChecked(); !got.Equal(forward) {
		t.Errorf("Watermark moved backward to %s",
			got.Format(common.TimestampFormat))
	}
} // func TestWatermarkMonotonic(t *testing.T)

func TestEventIDWatermark(t *testing.T) {
	if st == nil {
		t.SkipNow()
	}

	const projectID = 23

	if id, ok := st.LastEventID(projectID); ok {
		t.Errorf("Fresh store should have no event-ID watermark, got %d", id)
	}

	st.SetLastEventID(projectID, 100)

	if id, ok := st.LastEventID(projectID); !ok || id != 100 {
		t.Errorf("Expected event-ID watermark 100, got %d (ok=%t)", id, ok)
	}

	// Monotonic, a smaller ID must not regress the watermark.
	st.SetLastEventID(projectID, 50)

	if id, _ := st.LastEventID(projectID); id != 100 {
		t.Errorf("Event-ID watermark regressed to %d", id)
	}

	st.SetLastEventID(projectID, 102)

	if id, _ := st.LastEventID(projectID); id != 102 {
		t.Errorf("Expected event-ID watermark 102, got %d", id)
	}
} // func TestEventIDWatermark(t *testing.T)

func TestLedger(t *testing.T) {
	if st == nil {
		t.SkipNow()
	}

	const projectID = 23

	if st.HasSeen(projectID, "pipeline_456_success") {
		t.Error("Fresh ledger claims to have seen pipeline_456_success")
	}

	st.AddSeen(projectID, "pipeline_456_success", "job_7_failed")

	if !st.HasSeen(projectID, "pipeline_456_success") {
		t.Error("Ledger lost pipeline_456_success")
	} else if !st.HasSeen(projectID, "job_7_failed") {
		t.Error("Ledger lost job_7_failed")
	}

	// Adding a known identity again must not duplicate it; we
	// verify indirectly via the eviction test below.
	st.AddSeen(projectID, "pipeline_456_success")
} // func TestLedger(t *testing.T)

func TestLedgerEviction(t *testing.T) {
	if st == nil {
		t.SkipNow()
	}

	const projectID = 42

	// Distinct identities, oldest first.
	for i := 0; i < 150; i++ {
		st.AddSeen(projectID, identString(i))
	}

	// The cap is 100, so the first 50 must be gone and the last
	// 100 still present.
	for i := 0; i < 50; i++ {
		if st.HasSeen(projectID, identString(i)) {
			t.Errorf("Identity %s should have been evicted", identString(i))
		}
	}

	for i := 50; i < 150; i++ {
		if !st.HasSeen(projectID, identString(i)) {
			t.Errorf("Identity %s should still be in the ledger", identString(i))
		}
	}
} // func TestLedgerEviction(t *testing.T)

func identString(i int) string {
	return "pipeline_" + string(rune('0'+i/100)) + string(rune('0'+i/10%10)) + string(rune('0'+i%10)) + "_success"
} // func identString(i int) string

func TestProjectCache(t *testing.T) {
	if st == nil {
		t.SkipNow()
	}

	const projectID = 23

	st.SetProjectPath(projectID, "group/project")

	if path := st.ProjectPath(projectID); path != "group/project" {
		t.Errorf("Expected project path group/project, got %q", path)
	}

	var stamp = "2024-06-15T12:00:00Z"
	st.SetProjectActivity(projectID, stamp)

	if act, ok := st.ProjectActivity(projectID); !ok {
		t.Error("Project activity stamp was not cached")
	} else if act.Format(time.RFC3339) != stamp {
		t.Errorf("Expected activity stamp %s, got %s",
			stamp,
			act.Format(time.RFC3339))
	}
} // func TestProjectCache(t *testing.T)

func TestReload(t *testing.T) {
	if st == nil {
		t.SkipNow()
	}

	var (
		err error
		s2  *Store
	)

	if s2, err = Open(cachePath(), DefaultBacklog); err != nil {
		t.Fatalf("Cannot reopen store: %s", err.Error())
	} else if s2.IsFresh() {
		t.Error("Reopened store should not be fresh")
	}

	if id, ok := s2.LastEventID(23); !ok || id != 102 {
		t.Errorf("Reloaded store lost the event-ID watermark: got %d (ok=%t)", id, ok)
	}

	if !s2.HasSeen(23, "job_7_failed") {
		t.Error("Reloaded store lost the ledger")
	}

	if path := s2.ProjectPath(23); path != "group/project" {
		t.Errorf("Reloaded store lost the project path, got %q", path)
	}
} // func TestReload(t *testing.T)

func TestReset(t *testing.T) {
	if st == nil {
		t.SkipNow()
	}

	st.Reset()

	if id, ok := st.LastEventID(23); ok {
		t.Errorf("Reset store still has event-ID watermark %d", id)
	}

	if st.HasSeen(23, "job_7_failed") {
		t.Error("Reset store still has ledger entries")
	}

	var (
		want = common.Now().Add(-DefaultBacklog)
		diff = st.LastChecked().Sub(want)
	)

	if diff < -time.Minute || diff > time.Minute {
		t.Errorf("Reset watermark is %s, expected roughly %s",
			st.LastChecked().Format(common.TimestampFormat),
			want.Format(common.TimestampFormat))
	}
} // func TestReset(t *testing.T)

func TestOpenCorrupt(t *testing.T) {
	var (
		err  error
		path = filepath.Join(testDir, "corrupt.json")
		s2   *Store
	)

	if err = os.WriteFile(path, []byte("this is not json{{{"), 0600); err != nil {
		t.Fatalf("Cannot write corrupt state file: %s", err.Error())
	}

	if s2, err = Open(path, DefaultBacklog); err != nil {
		t.Fatalf("Opening a corrupt state file must not fail: %s", err.Error())
	} else if !s2.IsFresh() {
		t.Error("Store loaded from a corrupt file should be fresh")
	}
} // func TestOpenCorrupt(t *testing.T)
