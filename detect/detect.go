// /home/krylon/go/src/github.com/blicero/glping/detect/detect.go
// -*- mode: go; coding: utf-8; -*-
// Created on 06. 06. 2024 by Benjamin Walkenhorst
// (c) 2024 Benjamin Walkenhorst
// Time-stamp: <2024-08-30 14:26:40 krylon>

// Package detect decides which fetched records represent activity
// the user has not been notified about yet.
//
// Native timeline events are checked against both the global
// watermark and the per-project event-ID watermark. The upstream
// "after" filter is date-only, so neither check alone is reliable:
// the timestamp guards against reused or backfilled IDs, the ID
// guards against re-delivery of events fetched again around the
// same instant. Synthesized records are checked against the global
// watermark and the per-project ledger of composite identities.
package detect

import (
	"log"
	"sort"

	"github.com/blicero/glping/common"
	"github.com/blicero/glping/logdomain"
	"github.com/blicero/glping/objects"
	"github.com/blicero/glping/store"
)

// Detector is the filter between fetched candidates and delivered
// notifications.
type Detector struct {
	log   *log.Logger
	store *store.Store
}

// New creates a Detector working off the given Store.
func New(st *store.Store) (*Detector, error) {
	var (
		err error
		d   = &Detector{store: st}
	)

	if d.log, err = common.GetLogger(logdomain.Detect); err != nil {
		return nil, err
	}

	return d, nil
} // func New(st *store.Store) (*Detector, error)

// SelectNew returns the subset of candidates that should be
// delivered, in chronological order (ties broken by ascending ID).
// It does not modify any state; call MarkSeen after the records have
// actually been dispatched.
func (d *Detector) SelectNew(projectID int64, candidates []objects.Activity) []objects.Activity {
	var (
		watermark      = d.store.LastChecked()
		lastID, haveID = d.store.LastEventID(projectID)
		passed         = make([]objects.Activity, 0, len(candidates))
		inBatch        = make(map[string]bool, len(candidates))
	)

	for _, cand := range candidates {
		// A record without a usable timestamp passes the date
		// filter. Hiding real activity behind a malformed
		// timestamp would be worse than an occasional repeat.
		var dateOK = !cand.HasTimestamp() || cand.CreatedAt.After(watermark)

		var idOK = cand.EventID == 0 || !haveID || cand.EventID > lastID

		var ledgerOK = cand.Identity == "" ||
			(!inBatch[cand.Identity] && !d.store.HasSeen(projectID, cand.Identity))

		if dateOK && idOK && ledgerOK {
			if cand.Identity != "" {
				inBatch[cand.Identity] = true
			}
			passed = append(passed, cand)
		}
	}

	if skipped := len(candidates) - len(passed); skipped > 0 {
		d.log.Printf("[DEBUG] Project %d: %d of %d candidates already seen or too old\n",
			projectID,
			skipped,
			len(candidates))
	}

	sort.Slice(passed, func(i, j int) bool {
		return passed[i].Before(&passed[j])
	})

	return passed
} // func (d *Detector) SelectNew(projectID int64, candidates []objects.Activity) []objects.Activity

// MarkSeen records delivered Activities in the ledger: the event-ID
// watermark advances to the highest delivered native ID, and every
// composite identity is appended to the capped ledger. This runs
// after dispatch on purpose. If we crash in between, the next run
// repeats a notification rather than losing one.
func (d *Detector) MarkSeen(projectID int64, delivered []objects.Activity) {
	if len(delivered) == 0 {
		return
	}

	var (
		maxID      int64
		identities = make([]string, 0, len(delivered))
	)

	for i := range delivered {
		if delivered[i].EventID > maxID {
			maxID = delivered[i].EventID
		}
		if delivered[i].Identity != "" {
			identities = append(identities, delivered[i].Identity)
		}
	}

	if maxID > 0 {
		d.store.SetLastEventID(projectID, maxID)
	}

	d.store.AddSeen(projectID, identities...)
} // func (d *Detector) MarkSeen(projectID int64, delivered []objects.Activity)
