// /home/krylon/go/src/github.com/blicero/glping/detect/01_detect_test.go
// -*- mode: go; coding: utf-8; -*-
// Created on 16. 06. 2024 by Benjamin Walkenhorst
// (c) 2024 Benjamin Walkenhorst
// Time-stamp: <2024-08-30 22:02:17 krylon>

package detect

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/blicero/glping/common"
	"github.com/blicero/glping/objects"
	"github.com/blicero/glping/objects/kind"
	"github.com/blicero/glping/store"
)

const projectID = 23

var (
	testDir string
	st      *store.Store
	det     *Detector
)

func init() {
	var err error

	if testDir, err = os.MkdirTemp("", "glping_detect_test"); err != nil {
		panic(err)
	} else if err = common.SetBaseDir(testDir); err != nil {
		panic(err)
	}
} // func init()

func nativeEvent(id int64, stamp time.Time) objects.Activity {
	return objects.Activity{
		ProjectID: projectID,
		Kind:      kind.Event,
		EventID:   id,
		CreatedAt: stamp,
	}
} // func nativeEvent(id int64, stamp time.Time) objects.Activity

func TestCreateDetector(t *testing.T) {
	var err error

	if st, err = store.Open(filepath.Join(testDir, "cache.json"), store.DefaultBacklog); err != nil {
		t.Fatalf("Cannot open store: %s", err.Error())
	} else if det, err = New(st); err != nil {
		det = nil
		t.Fatalf("Cannot create Detector: %s", err.Error())
	}
} // func TestCreateDetector(t *testing.T)

// Native events must clear both the date filter and the per-project
// ID watermark, and come out in chronological order.
func TestNativeEvents(t *testing.T) {
	if det == nil {
		t.SkipNow()
	}

	var (
		now        = common.Now()
		candidates = []objects.Activity{
			nativeEvent(102, now.Add(-time.Minute)),
			nativeEvent(99, now.Add(-time.Minute*3)),
			nativeEvent(101, now.Add(-time.Minute*2)),
		}
	)

	st.SetLastEventID(projectID, 100)

	var fresh = det.SelectNew(projectID, candidates)

	if len(fresh) != 2 {
		t.Fatalf("Expected 2 new events, got %d", len(fresh))
	} else if fresh[0].EventID != 101 || fresh[1].EventID != 102 {
		t.Errorf("Expected events 101, 102 in order, got %d, %d",
			fresh[0].EventID,
			fresh[1].EventID)
	}

	det.MarkSeen(projectID, fresh)

	if id, _ := st.LastEventID(projectID); id != 102 {
		t.Errorf("Event-ID watermark should be 102 after delivery, got %d", id)
	}

	// A second pass over the same candidates must yield nothing.
	if fresh = det.SelectNew(projectID, candidates); len(fresh) != 0 {
		t.Errorf("Repeated delivery: %d events passed twice", len(fresh))
	}
} // func TestNativeEvents(t *testing.T)

// A pipeline is news once per status, not once per fetch.
func TestPipelineStatusTransitions(t *testing.T) {
	if det == nil {
		t.SkipNow()
	}

	var (
		now     = common.Now()
		pending = objects.Activity{
			ProjectID: projectID,
			Kind:      kind.Pipeline,
			Identity:  "pipeline_456_pending",
			CreatedAt: now.Add(-time.Minute * 5),
		}
		success = objects.Activity{
			ProjectID: projectID,
			Kind:      kind.Pipeline,
			Identity:  "pipeline_456_success",
			CreatedAt: now.Add(-time.Minute * 5),
		}
	)

	var fresh = det.SelectNew(projectID, []objects.Activity{pending})
	if len(fresh) != 1 {
		t.Fatalf("Pending pipeline should be news, got %d records", len(fresh))
	}
	det.MarkSeen(projectID, fresh)

	// The status changed, so the same pipeline is news again.
	if fresh = det.SelectNew(projectID, []objects.Activity{pending, success}); len(fresh) != 1 {
		t.Fatalf("Expected exactly the success transition, got %d records", len(fresh))
	} else if fresh[0].Identity != "pipeline_456_success" {
		t.Errorf("Expected pipeline_456_success, got %s", fresh[0].Identity)
	}
	det.MarkSeen(projectID, fresh)

	// Fetching the finished pipeline again is not news.
	if fresh = det.SelectNew(projectID, []objects.Activity{success}); len(fresh) != 0 {
		t.Errorf("Same status delivered twice: %d records", len(fresh))
	}
} // func TestPipelineStatusTransitions(t *testing.T)

// Records created before the watermark are old news, however exotic
// their identity.
func TestWatermarkFilter(t *testing.T) {
	if det == nil {
		t.SkipNow()
	}

	var stale = objects.Activity{
		ProjectID: projectID,
		Kind:      kind.Pipeline,
		Identity:  "pipeline_111_success",
		CreatedAt: st.LastChecked().Add(-time.Hour),
	}

	if fresh := det.SelectNew(projectID, []objects.Activity{stale}); len(fresh) != 0 {
		t.Errorf("Record older than the watermark passed the filter")
	}
} // func TestWatermarkFilter(t *testing.T)

// A record whose timestamp could not be parsed must not be hidden by
// the date filter.
func TestUnparsableTimestampFailsOpen(t *testing.T) {
	if det == nil {
		t.SkipNow()
	}

	var odd = objects.Activity{
		ProjectID: projectID,
		Kind:      kind.Release,
		Identity:  "release_v1.0_released",
		// Zero CreatedAt, as the normalizer produces for garbage input.
	}

	var fresh = det.SelectNew(projectID, []objects.Activity{odd})
	if len(fresh) != 1 {
		t.Fatalf("Record without timestamp was suppressed")
	}

	det.MarkSeen(projectID, fresh)

	// The ledger still applies, so it only fails open once.
	if fresh = det.SelectNew(projectID, []objects.Activity{odd}); len(fresh) != 0 {
		t.Errorf("Record without timestamp was delivered twice")
	}
} // func TestUnparsableTimestampFailsOpen(t *testing.T)

// If the process dies after selection but before MarkSeen, the next
// run must re-detect the same candidates. Duplicates on crash are
// acceptable, silent loss is not.
func TestCrashBeforeMarkSeen(t *testing.T) {
	if det == nil {
		t.SkipNow()
	}

	var (
		now  = common.Now()
		cand = objects.Activity{
			ProjectID: projectID,
			Kind:      kind.Deployment,
			Identity:  "deployment_5_running",
			CreatedAt: now.Add(-time.Second * 20),
		}
	)

	var first = det.SelectNew(projectID, []objects.Activity{cand})
	if len(first) != 1 {
		t.Fatalf("Deployment was suppressed on first sight")
	}

	// No MarkSeen: the ledger write never happened.

	var second = det.SelectNew(projectID, []objects.Activity{cand})
	if len(second) != 1 {
		t.Errorf("Candidate lost after simulated crash: got %d records", len(second))
	}

	det.MarkSeen(projectID, second)

	if third := det.SelectNew(projectID, []objects.Activity{cand}); len(third) != 0 {
		t.Errorf("Candidate delivered again after MarkSeen")
	}
} // func TestCrashBeforeMarkSeen(t *testing.T)

// Membership records carry no timestamp, because the API only reports
// the join date. A member who joined long before the watermark must
// still be news once, and a later promotion must be news again.
func TestMemberPromotion(t *testing.T) {
	if det == nil {
		t.SkipNow()
	}

	var developer = objects.Activity{
		ProjectID: projectID,
		Kind:      kind.Member,
		Identity:  "member_7_30",
	}

	var fresh = det.SelectNew(projectID, []objects.Activity{developer})
	if len(fresh) != 1 {
		t.Fatalf("Long-standing member was suppressed on first sight")
	}
	det.MarkSeen(projectID, fresh)

	// Months later the member is promoted. The membership's join
	// date is unchanged and far behind the watermark; only the
	// access level in the identity differs.
	var maintainer = objects.Activity{
		ProjectID: projectID,
		Kind:      kind.Member,
		Identity:  "member_7_40",
	}

	if fresh = det.SelectNew(projectID, []objects.Activity{maintainer}); len(fresh) != 1 {
		t.Fatalf("Promotion to Maintainer was suppressed")
	} else if fresh[0].Identity != "member_7_40" {
		t.Errorf("Expected member_7_40, got %s", fresh[0].Identity)
	}
	det.MarkSeen(projectID, fresh)

	// Refetching the same membership is not news.
	if fresh = det.SelectNew(projectID, []objects.Activity{maintainer}); len(fresh) != 0 {
		t.Errorf("Unchanged membership delivered twice: %d records", len(fresh))
	}
} // func TestMemberPromotion(t *testing.T)

// The same identity occurring twice in one batch is delivered once.
func TestInBatchDedup(t *testing.T) {
	if det == nil {
		t.SkipNow()
	}

	var (
		now = common.Now()
		job = objects.Activity{
			ProjectID: projectID,
			Kind:      kind.Job,
			Identity:  "job_88_running",
			CreatedAt: now.Add(-time.Second * 30),
		}
	)

	if fresh := det.SelectNew(projectID, []objects.Activity{job, job}); len(fresh) != 1 {
		t.Errorf("Expected 1 record from a batch with a duplicate, got %d", len(fresh))
	}
} // func TestInBatchDedup(t *testing.T)

// Records diverted out of the native feed carry both an event ID and
// a composite identity; both guards must hold.
func TestDivertedRecords(t *testing.T) {
	if det == nil {
		t.SkipNow()
	}

	var (
		now = common.Now()
		tag = objects.Activity{
			ProjectID: projectID,
			Kind:      kind.TagPush,
			EventID:   200,
			Identity:  "tag_v2.0_created",
			CreatedAt: now.Add(-time.Second * 10),
		}
	)

	var fresh = det.SelectNew(projectID, []objects.Activity{tag})
	if len(fresh) != 1 {
		t.Fatalf("Diverted tag push was suppressed")
	}

	det.MarkSeen(projectID, fresh)

	if id, _ := st.LastEventID(projectID); id != 200 {
		t.Errorf("Event-ID watermark should be 200, got %d", id)
	}

	// Same record, refetched: the ID watermark alone suffices.
	if fresh = det.SelectNew(projectID, []objects.Activity{tag}); len(fresh) != 0 {
		t.Errorf("Diverted record delivered twice")
	}

	// Same tag, recreated later with a new event ID: the ledger
	// still blocks the identical identity.
	var again = tag
	again.EventID = 300
	again.CreatedAt = now

	if fresh = det.SelectNew(projectID, []objects.Activity{again}); len(fresh) != 0 {
		t.Errorf("Identity in ledger passed via fresh event ID")
	}
} // func TestDivertedRecords(t *testing.T)
