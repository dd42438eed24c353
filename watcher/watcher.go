// /home/krylon/go/src/github.com/blicero/glping/watcher/watcher.go
// -*- mode: go; coding: utf-8; -*-
// Created on 13. 06. 2024 by Benjamin Walkenhorst
// (c) 2024 Benjamin Walkenhorst
// Time-stamp: <2024-08-30 20:21:46 krylon>

// Package watcher is the centerpiece of the application: it
// periodically polls the GitLab API for the projects we care about,
// funnels everything through the change detector, and dispatches
// desktop notifications for what comes out the other end.
package watcher

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blicero/glping/common"
	"github.com/blicero/glping/config"
	"github.com/blicero/glping/detect"
	"github.com/blicero/glping/gitlab"
	"github.com/blicero/glping/history"
	"github.com/blicero/glping/logdomain"
	"github.com/blicero/glping/normalize"
	"github.com/blicero/glping/notify"
	"github.com/blicero/glping/objects"
	"github.com/blicero/glping/render"
	"github.com/blicero/glping/store"
	"github.com/gorilla/mux"
)

// Watcher ties the fetch, detect, render, notify pipeline together
// and runs it on a timer.
type Watcher struct {
	log      *log.Logger
	cfg      *config.Config
	store    *store.Store
	api      *gitlab.Client
	detector *detect.Detector
	renderer *render.Renderer
	notifier *notify.Notifier
	hist     *history.Pool
	router   *mux.Router

	lock   sync.RWMutex
	active bool
	quit   chan struct{}
}

// Create assembles a Watcher from its parts. hist may be nil if no
// notification history is kept.
func Create(cfg *config.Config, st *store.Store, hist *history.Pool) (*Watcher, error) {
	var (
		err error
		w   = &Watcher{
			cfg:   cfg,
			store: st,
			hist:  hist,
			quit:  make(chan struct{}),
		}
	)

	if w.log, err = common.GetLogger(logdomain.Watcher); err != nil {
		return nil, err
	} else if w.api, err = gitlab.NewClient(cfg.Gitlab.URL, cfg.Gitlab.Token); err != nil {
		return nil, err
	} else if w.detector, err = detect.New(st); err != nil {
		return nil, err
	} else if w.renderer, err = render.New(cfg.Gitlab.URL); err != nil {
		return nil, err
	} else if w.notifier, err = notify.New(); err != nil {
		return nil, err
	}

	st.LedgerCap = cfg.Check.LedgerCap

	return w, nil
} // func Create(cfg *config.Config, st *store.Store, hist *history.Pool) (*Watcher, error)

// IsAlive returns true if the polling loop should keep running.
func (w *Watcher) IsAlive() bool {
	w.lock.RLock()
	defer w.lock.RUnlock()
	return w.active
} // func (w *Watcher) IsAlive() bool

// Stop tells the polling loop to wind down. The loop is woken up
// immediately instead of sleeping out the rest of its interval.
func (w *Watcher) Stop() {
	w.lock.Lock()
	defer w.lock.Unlock()

	w.active = false

	if w.quit != nil {
		close(w.quit)
		w.quit = nil
	}
} // func (w *Watcher) Stop()

// TestConnection verifies the instance URL and token by asking the
// API who we are.
func (w *Watcher) TestConnection() (string, error) {
	return w.api.TestConnection()
} // func (w *Watcher) TestConnection() (string, error)

// Run executes check cycles until Stop is called. It performs one
// cycle immediately, then one per configured interval.
func (w *Watcher) Run() {
	w.lock.Lock()
	w.active = true
	var quit = w.quit
	w.lock.Unlock()

	if w.cfg.WWWAddr != "" {
		go w.serveWWW()
	}

	w.log.Printf("[INFO] Watching %s every %s\n",
		w.cfg.Gitlab.URL,
		w.cfg.Check.Interval)

	var ticker = time.NewTicker(w.cfg.Check.Interval)
	defer ticker.Stop()

	for w.IsAlive() {
		var cnt, err = w.CheckOnce()
		if err != nil {
			w.log.Printf("[ERROR] Check cycle failed: %s\n",
				err.Error())
		} else if cnt > 0 {
			w.log.Printf("[INFO] Delivered %d notification(s)\n",
				cnt)
		}

		select {
		case <-ticker.C:
		case <-quit:
			return
		}
	}
} // func (w *Watcher) Run()

// CheckOnce performs one full check cycle and returns the number of
// notifications delivered. The global watermark advances exactly once
// per cycle, to the cycle's start time, and only after every project
// has been handled.
func (w *Watcher) CheckOnce() (int, error) {
	var (
		err        error
		projects   []objects.Project
		cycleStart = common.Now()
		watermark  = w.store.LastChecked()
		filter     = gitlab.ProjectFilter{
			Membership: true,
			ProjectID:  w.cfg.ProjectID,
		}
	)

	// On the very first run we have no trustworthy watermark, so we
	// fetch the unfiltered list once.
	if !w.store.IsFresh() && w.cfg.ProjectID == 0 {
		filter.ActiveAfter = watermark
	}

	if projects, err = w.api.FetchProjects(filter); err != nil {
		return 0, err
	}

	w.log.Printf("[DEBUG] Checking %d project(s) for activity since %s\n",
		len(projects),
		watermark.Format(common.TimestampFormat))

	var (
		wg    sync.WaitGroup
		sem   = make(chan struct{}, w.cfg.Check.MaxWorkers)
		total int64
	)

	for idx := range projects {
		var p = &projects[idx]

		w.store.SetProjectPath(p.ID, p.PathWithNamespace)

		// The server-side activity filter is advisory; we trust
		// the cached per-project stamp only when it parses.
		// Anything ambiguous gets checked.
		var lastActivity = normalize.ParseTime(p.LastActivityAt)
		if !lastActivity.IsZero() && !lastActivity.After(watermark) {
			if cached, ok := w.store.ProjectActivity(p.ID); ok && !lastActivity.After(cached) {
				continue
			}
		}

		wg.Add(1)
		sem <- struct{}{}

		go func() {
			defer func() {
				<-sem
				wg.Done()
			}()

			var cnt = w.checkProject(p, watermark)
			atomic.AddInt64(&total, int64(cnt))

			w.store.SetProjectActivity(p.ID, p.LastActivityAt)
		}()
	}

	wg.Wait()

	w.store.AdvanceLastChecked(cycleStart)

	return int(atomic.LoadInt64(&total)), nil
} // func (w *Watcher) CheckOnce() (int, error)

// checkProject polls all activity sources of one project. The sources
// are independent: a failing fetch is logged and skipped without
// affecting the others, and without advancing any dedup state for the
// failed source.
func (w *Watcher) checkProject(p *objects.Project, watermark time.Time) int {
	var total int

	if events, err := w.api.FetchProjectEvents(p.ID, watermark); err != nil {
		w.logFetchError(p, "events", err)
	} else {
		var cands = make([]objects.Activity, 0, len(events))
		for i := range events {
			cands = append(cands, normalize.Event(&events[i]))
		}
		total += w.deliver(p, cands)
	}

	if pipelines, err := w.api.FetchProjectPipelines(p.ID, watermark); err != nil {
		w.logFetchError(p, "pipelines", err)
	} else {
		var cands = make([]objects.Activity, 0, len(pipelines))
		for i := range pipelines {
			cands = append(cands, normalize.Pipeline(&pipelines[i], p.ID))
		}
		total += w.deliver(p, cands)
	}

	if jobs, err := w.api.FetchProjectJobs(p.ID, watermark); err != nil {
		w.logFetchError(p, "jobs", err)
	} else {
		var cands = make([]objects.Activity, 0, len(jobs))
		for i := range jobs {
			cands = append(cands, normalize.Job(&jobs[i], p.ID))
		}
		total += w.deliver(p, cands)
	}

	if deployments, err := w.api.FetchProjectDeployments(p.ID, watermark); err != nil {
		w.logFetchError(p, "deployments", err)
	} else {
		var cands = make([]objects.Activity, 0, len(deployments))
		for i := range deployments {
			cands = append(cands, normalize.Deployment(&deployments[i], p.ID))
		}
		total += w.deliver(p, cands)
	}

	if releases, err := w.api.FetchProjectReleases(p.ID); err != nil {
		w.logFetchError(p, "releases", err)
	} else {
		var cands = make([]objects.Activity, 0, len(releases))
		for i := range releases {
			cands = append(cands, normalize.Release(&releases[i], p.ID))
		}
		total += w.deliver(p, cands)
	}

	if members, err := w.api.FetchProjectMembers(p.ID); err != nil {
		w.logFetchError(p, "members", err)
	} else {
		var cands = make([]objects.Activity, 0, len(members))
		for i := range members {
			cands = append(cands, normalize.Member(&members[i], p.ID))
		}
		total += w.deliver(p, cands)
	}

	return total
} // func (w *Watcher) checkProject(p *objects.Project, watermark time.Time) int

func (w *Watcher) logFetchError(p *objects.Project, source string, err error) {
	w.log.Printf("[ERROR] Cannot fetch %s for %s (%d): %s\n",
		source,
		p.DisplayName(),
		p.ID,
		err.Error())
} // func (w *Watcher) logFetchError(p *objects.Project, source string, err error)

// deliver runs candidates through the detector, dispatches what comes
// out, and marks the dispatched records as seen. Marking happens
// after dispatch: a crash in between repeats notifications on the
// next run instead of losing them.
func (w *Watcher) deliver(p *objects.Project, candidates []objects.Activity) int {
	if len(candidates) == 0 {
		return 0
	}

	var fresh = w.detector.SelectNew(p.ID, candidates)
	if len(fresh) == 0 {
		return 0
	}

	var delivered = make([]objects.Activity, 0, len(fresh))

	for i := range fresh {
		var note = w.renderer.Render(&fresh[i], p.DisplayName(), p.PathWithNamespace)

		if err := w.notifier.Deliver(&note); err != nil {
			w.log.Printf("[ERROR] Cannot deliver notification %q: %s\n",
				note.Title,
				err.Error())
		}

		// Delivery to the desktop was at least attempted, so the
		// record counts as seen either way.
		delivered = append(delivered, fresh[i])

		w.recordHistory(p, &fresh[i], &note)
	}

	w.detector.MarkSeen(p.ID, delivered)

	return len(delivered)
} // func (w *Watcher) deliver(p *objects.Project, candidates []objects.Activity) int

func (w *Watcher) recordHistory(p *objects.Project, act *objects.Activity, note *render.Notification) {
	if w.hist == nil {
		return
	}

	var db = w.hist.Get()
	defer w.hist.Put(db)

	var stamp = act.CreatedAt
	if stamp.IsZero() {
		stamp = common.Now()
	}

	var entry = history.Entry{
		Timestamp: stamp,
		Project:   p.DisplayName(),
		Identity:  act.Identity,
		Title:     note.Title,
		Message:   note.Message,
		URL:       note.URL,
	}

	if err := db.NotificationAdd(&entry); err != nil {
		w.log.Printf("[ERROR] Cannot record notification in history: %s\n",
			err.Error())
	}
} // func (w *Watcher) recordHistory(p *objects.Project, act *objects.Activity, note *render.Notification)
