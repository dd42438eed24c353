// /home/krylon/go/src/github.com/blicero/glping/store/store.go
// -*- mode: go; coding: utf-8; -*-
// Created on 04. 06. 2024 by Benjamin Walkenhorst
// (c) 2024 Benjamin Walkenhorst
// Time-stamp: <2024-08-30 11:37:19 krylon>

// Package store implements the persistent state of the watcher: the
// global watermark, the per-project event-ID watermarks and ledgers
// of already-notified composite identities, and the cached project
// activity timestamps and paths.
//
// The whole state is one JSON document that is rewritten atomically
// on every mutation: we serialize to a temporary file in the same
// directory, fsync it, and rename it over the destination, so a
// concurrent reader never sees a torn document. An advisory file
// lock is held for the duration of the write; the single-instance
// process lock is the primary defense against racing instances, this
// is the second layer.
package store

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blicero/glping/common"
	"github.com/blicero/glping/logdomain"
	"github.com/blicero/krylib"
	"github.com/pquerna/ffjson/ffjson"
	"golang.org/x/sys/unix"
)

// DefaultBacklog is the bootstrap window: with no prior watermark we
// look this far into the past rather than replaying full history.
const DefaultBacklog = time.Hour * 24

// DefaultLedgerCap bounds the per-project ledger of composite
// identities; the oldest entries are evicted past this limit.
const DefaultLedgerCap = 100

// ProjectLedger is the per-project dedup state. LastEventID is the
// high-watermark for native timeline events; Events is the capped
// list of composite identities already notified, oldest first.
type ProjectLedger struct {
	LastEventID int64    `json:"last_event_id,omitempty"`
	Events      []string `json:"events,omitempty"`
}

// Metadata holds the document-global fields.
type Metadata struct {
	InstallationDate string `json:"installation_date"`
	LastChecked      string `json:"last_checked"`
}

// Document is the serialized shape of the entire state.
type Document struct {
	Metadata        Metadata                  `json:"metadata"`
	Projects        map[string]*ProjectLedger `json:"projects"`
	ProjectActivity map[string]string         `json:"project_activity"`
	ProjectPaths    map[string]string         `json:"project_paths"`
}

// Store is the handle all components share. Every mutation goes
// through Mutate, which serializes writers in-process with a mutex
// and cross-process with an advisory file lock.
type Store struct {
	path      string
	lockPath  string
	log       *log.Logger
	backlog   time.Duration
	LedgerCap int

	lock  sync.RWMutex
	doc   *Document
	fresh bool
}

// Open loads the state document from path, or bootstraps a fresh one
// if the file is missing or unreadable. Corruption is never fatal.
func Open(path string, backlog time.Duration) (*Store, error) {
	var (
		err error
		s   = &Store{
			path:      path,
			lockPath:  path + ".lock",
			backlog:   backlog,
			LedgerCap: DefaultLedgerCap,
		}
	)

	if backlog <= 0 {
		s.backlog = DefaultBacklog
	}

	if s.log, err = common.GetLogger(logdomain.Store); err != nil {
		return nil, err
	}

	s.doc = s.load()

	return s, nil
} // func Open(path string, backlog time.Duration) (*Store, error)

func (s *Store) load() *Document {
	var (
		err   error
		exist bool
		buf   []byte
		doc   Document
	)

	if exist, err = krylib.Fexists(s.path); err != nil {
		s.log.Printf("[ERROR] Cannot check for state file %s: %s\n",
			s.path,
			err.Error())
	} else if !exist {
		s.log.Printf("[INFO] No state file at %s, bootstrapping\n",
			s.path)
		return s.freshDocument()
	}

	if buf, err = os.ReadFile(s.path); err != nil {
		s.log.Printf("[ERROR] Cannot read state file %s: %s\n",
			s.path,
			err.Error())
		return s.freshDocument()
	} else if err = ffjson.Unmarshal(buf, &doc); err != nil {
		s.log.Printf("[ERROR] State file %s is corrupted, starting over: %s\n",
			s.path,
			err.Error())
		return s.freshDocument()
	}

	if doc.Projects == nil {
		doc.Projects = make(map[string]*ProjectLedger)
	}
	if doc.ProjectActivity == nil {
		doc.ProjectActivity = make(map[string]string)
	}
	if doc.ProjectPaths == nil {
		doc.ProjectPaths = make(map[string]string)
	}

	if _, err = time.Parse(time.RFC3339, doc.Metadata.LastChecked); err != nil {
		s.log.Printf("[DEBUG] State file has no usable watermark (%q), bootstrapping one\n",
			doc.Metadata.LastChecked)
		doc.Metadata.LastChecked = common.Now().Add(-s.backlog).Format(time.RFC3339)
		s.fresh = true
	}

	return &doc
} // func (s *Store) load() *Document

func (s *Store) freshDocument() *Document {
	s.fresh = true
	return &Document{
		Metadata: Metadata{
			InstallationDate: common.Now().Format(time.RFC3339),
			LastChecked:      common.Now().Add(-s.backlog).Format(time.RFC3339),
		},
		Projects:        make(map[string]*ProjectLedger),
		ProjectActivity: make(map[string]string),
		ProjectPaths:    make(map[string]string),
	}
} // func (s *Store) freshDocument() *Document

// IsFresh returns true if the Store was bootstrapped rather than
// loaded from an existing document. The orchestrator uses this to
// fetch the unfiltered project list on the first run.
func (s *Store) IsFresh() bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.fresh
} // func (s *Store) IsFresh() bool

// Mutate applies fn to the document, then rewrites the backing file
// atomically. A failure to persist is logged and swallowed: the
// in-memory document remains authoritative, and the next successful
// write will carry the accumulated state.
func (s *Store) Mutate(fn func(doc *Document)) {
	s.lock.Lock()
	defer s.lock.Unlock()

	fn(s.doc)

	if err := s.save(); err != nil {
		s.log.Printf("[ERROR] Cannot persist state to %s: %s\n",
			s.path,
			err.Error())
	}
} // func (s *Store) Mutate(fn func(doc *Document))

// save performs the atomic rewrite. Caller holds s.lock.
func (s *Store) save() error {
	var (
		err      error
		buf      []byte
		tmp, lfh *os.File
	)

	if buf, err = ffjson.Marshal(s.doc); err != nil {
		return fmt.Errorf("cannot serialize state document: %s",
			err.Error())
	}

	defer ffjson.Pool(buf)

	if lfh, err = os.OpenFile(s.lockPath, os.O_RDWR|os.O_CREATE, 0600); err != nil {
		return fmt.Errorf("cannot open lock file %s: %s",
			s.lockPath,
			err.Error())
	}

	defer lfh.Close() // nolint: errcheck

	if err = unix.Flock(int(lfh.Fd()), unix.LOCK_EX); err != nil {
		return fmt.Errorf("cannot lock %s: %s",
			s.lockPath,
			err.Error())
	}

	defer unix.Flock(int(lfh.Fd()), unix.LOCK_UN) // nolint: errcheck

	if tmp, err = os.CreateTemp(filepath.Dir(s.path), ".cache.*.json"); err != nil {
		return fmt.Errorf("cannot create temporary file: %s",
			err.Error())
	}

	defer os.Remove(tmp.Name()) // nolint: errcheck

	if _, err = tmp.Write(buf); err != nil {
		tmp.Close() // nolint: errcheck
		return fmt.Errorf("cannot write state to %s: %s",
			tmp.Name(),
			err.Error())
	} else if err = tmp.Sync(); err != nil {
		tmp.Close() // nolint: errcheck
		return fmt.Errorf("cannot sync %s: %s",
			tmp.Name(),
			err.Error())
	} else if err = tmp.Close(); err != nil {
		return fmt.Errorf("cannot close %s: %s",
			tmp.Name(),
			err.Error())
	} else if err = os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("cannot rename %s to %s: %s",
			tmp.Name(),
			s.path,
			err.Error())
	}

	s.fresh = false

	return nil
} // func (s *Store) save() error

// Reset discards all per-project state and resets the watermark to
// the bootstrap window.
func (s *Store) Reset() {
	s.Mutate(func(doc *Document) {
		doc.Metadata.InstallationDate = common.Now().Format(time.RFC3339)
		doc.Metadata.LastChecked = common.Now().Add(-s.backlog).Format(time.RFC3339)
		doc.Projects = make(map[string]*ProjectLedger)
		doc.ProjectActivity = make(map[string]string)
		doc.ProjectPaths = make(map[string]string)
	})
} // func (s *Store) Reset()

// LastChecked returns the global watermark.
func (s *Store) LastChecked() time.Time {
	s.lock.RLock()
	defer s.lock.RUnlock()

	var t, err = time.Parse(time.RFC3339, s.doc.Metadata.LastChecked)
	if err != nil {
		// load() guarantees a parseable stamp, but belt and suspenders.
		return common.Now().Add(-s.backlog)
	}

	return t
} // func (s *Store) LastChecked() time.Time

// AdvanceLastChecked moves the watermark forward to t. The watermark
// never moves backward.
func (s *Store) AdvanceLastChecked(t time.Time) {
	var cur = s.LastChecked()

	if !t.After(cur) {
		s.log.Printf("[DEBUG] Not moving watermark backward (%s -> %s)\n",
			cur.Format(common.TimestampFormat),
			t.Format(common.TimestampFormat))
		return
	}

	s.Mutate(func(doc *Document) {
		doc.Metadata.LastChecked = t.UTC().Format(time.RFC3339)
	})
} // func (s *Store) AdvanceLastChecked(t time.Time)

func pkey(projectID int64) string {
	return fmt.Sprintf("%d", projectID)
} // func pkey(projectID int64) string

// LastEventID returns the per-project high-watermark of native event
// IDs, or (0, false) if none has been recorded yet.
func (s *Store) LastEventID(projectID int64) (int64, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if ledger, ok := s.doc.Projects[pkey(projectID)]; ok && ledger.LastEventID > 0 {
		return ledger.LastEventID, true
	}

	return 0, false
} // func (s *Store) LastEventID(projectID int64) (int64, bool)

// SetLastEventID advances the per-project event-ID watermark. It is
// monotonic, a smaller ID than the current watermark is ignored.
func (s *Store) SetLastEventID(projectID int64, id int64) {
	s.Mutate(func(doc *Document) {
		var (
			key    = pkey(projectID)
			ledger = doc.Projects[key]
		)

		if ledger == nil {
			ledger = &ProjectLedger{}
			doc.Projects[key] = ledger
		}

		if id > ledger.LastEventID {
			ledger.LastEventID = id
		}
	})
} // func (s *Store) SetLastEventID(projectID int64, id int64)

// HasSeen returns true if the composite identity has already been
// notified for the given project.
func (s *Store) HasSeen(projectID int64, identity string) bool {
	s.lock.RLock()
	defer s.lock.RUnlock()

	var ledger, ok = s.doc.Projects[pkey(projectID)]
	if !ok {
		return false
	}

	for _, ident := range ledger.Events {
		if ident == identity {
			return true
		}
	}

	return false
} // func (s *Store) HasSeen(projectID int64, identity string) bool

// AddSeen records composite identities as notified, evicting the
// oldest entries once the ledger exceeds its cap.
func (s *Store) AddSeen(projectID int64, identities ...string) {
	if len(identities) == 0 {
		return
	}

	s.Mutate(func(doc *Document) {
		var (
			key    = pkey(projectID)
			ledger = doc.Projects[key]
		)

		if ledger == nil {
			ledger = &ProjectLedger{}
			doc.Projects[key] = ledger
		}

	ADD:
		for _, ident := range identities {
			for _, seen := range ledger.Events {
				if seen == ident {
					continue ADD
				}
			}
			ledger.Events = append(ledger.Events, ident)
		}

		if excess := len(ledger.Events) - s.LedgerCap; excess > 0 {
			ledger.Events = ledger.Events[excess:]
		}
	})
} // func (s *Store) AddSeen(projectID int64, identities ...string)

// ProjectActivity returns the cached last_activity_at stamp for the
// project, or (zero, false) if none is cached or it cannot be parsed.
func (s *Store) ProjectActivity(projectID int64) (time.Time, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	var stamp, ok = s.doc.ProjectActivity[pkey(projectID)]
	if !ok {
		return time.Time{}, false
	}

	var t, err = time.Parse(time.RFC3339, stamp)
	if err != nil {
		return time.Time{}, false
	}

	return t, true
} // func (s *Store) ProjectActivity(projectID int64) (time.Time, bool)

// SetProjectActivity caches the project's last_activity_at stamp.
func (s *Store) SetProjectActivity(projectID int64, stamp string) {
	if stamp == "" {
		return
	}

	s.Mutate(func(doc *Document) {
		doc.ProjectActivity[pkey(projectID)] = stamp
	})
} // func (s *Store) SetProjectActivity(projectID int64, stamp string)

// ProjectPath returns the cached namespace/slug path of the project.
func (s *Store) ProjectPath(projectID int64) string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.doc.ProjectPaths[pkey(projectID)]
} // func (s *Store) ProjectPath(projectID int64) string

// SetProjectPath caches the namespace/slug path of the project.
func (s *Store) SetProjectPath(projectID int64, path string) {
	if path == "" {
		return
	}

	s.Mutate(func(doc *Document) {
		doc.ProjectPaths[pkey(projectID)] = path
	})
} // func (s *Store) SetProjectPath(projectID int64, path string)

// ProjectCount returns the number of projects we have state for.
func (s *Store) ProjectCount() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.doc.Projects)
} // func (s *Store) ProjectCount() int
