// /home/krylon/go/src/github.com/blicero/glping/history/history.go
// -*- mode: go; coding: utf-8; -*-
// Created on 11. 06. 2024 by Benjamin Walkenhorst
// (c) 2024 Benjamin Walkenhorst
// Time-stamp: <2024-08-30 19:12:34 krylon>

// Package history keeps a log of delivered notifications in a SQLite
// database, so one can look up what happened while one was away from
// the desk.
package history

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"regexp"
	"sync"
	"time"

	"github.com/blicero/glping/common"
	"github.com/blicero/glping/history/query"
	"github.com/blicero/glping/logdomain"
	"github.com/blicero/krylib"
	_ "github.com/mattn/go-sqlite3" // Import the database driver
)

// Entry is one delivered notification as recorded in the history.
type Entry struct {
	ID        int64
	Timestamp time.Time
	Project   string
	Identity  string
	Title     string
	Message   string
	URL       string
}

var (
	openLock sync.Mutex
	idCnt    int64
)

// ErrTxInProgress indicates that an attempt was made to initiate a
// transaction while one is already in progress.
var ErrTxInProgress = fmt.Errorf("A Transaction is already in progress")

// ErrNoTxInProgress indicates that an attempt was made to finish a
// transaction when none was active.
var ErrNoTxInProgress = fmt.Errorf("There is no transaction in progress")

var retryPat = regexp.MustCompile("(?i)database is (?:locked|busy)")

// worthARetry returns true if the given error is transient and the
// operation that caused it should be retried.
func worthARetry(e error) bool {
	return retryPat.MatchString(e.Error())
} // func worthARetry(e error) bool

// retryDelay is the amount of time we wait before we repeat a
// database operation that failed due to a transient error.
const retryDelay = 25 * time.Millisecond

func waitForRetry() {
	time.Sleep(retryDelay)
} // func waitForRetry()

// Database wraps the connection to the underlying data store, along
// with the bookkeeping that goes with it.
type Database struct {
	id      int64
	db      *sql.DB
	tx      *sql.Tx
	log     *log.Logger
	path    string
	queries map[query.ID]*sql.Stmt
}

// Open opens the database at the given path, creating and
// initializing it if necessary.
func Open(path string) (*Database, error) {
	var (
		err      error
		dbExists bool
		db       = &Database{
			path:    path,
			queries: make(map[query.ID]*sql.Stmt, len(dbQueries)),
		}
	)

	openLock.Lock()
	defer openLock.Unlock()
	idCnt++
	db.id = idCnt

	if db.log, err = common.GetLogger(logdomain.History); err != nil {
		return nil, err
	}

	var connstring = fmt.Sprintf("%s?_locking=NORMAL&_journal=WAL&_fk=1&recursive_triggers=0&_busy_timeout=5000",
		path)

	if dbExists, err = krylib.Fexists(path); err != nil {
		db.log.Printf("[ERROR] Failed to check if %s exists: %s\n",
			path,
			err.Error())
		return nil, err
	} else if db.db, err = sql.Open("sqlite3", connstring); err != nil {
		db.log.Printf("[ERROR] Failed to open %s: %s\n",
			path,
			err.Error())
		return nil, err
	}

	if !dbExists {
		if err = db.initialize(); err != nil {
			var e2 error
			if e2 = db.db.Close(); e2 != nil {
				db.log.Printf("[CRITICAL] Failed to close database: %s\n",
					e2.Error())
				return nil, e2
			} else if e2 = os.Remove(path); e2 != nil {
				db.log.Printf("[CRITICAL] Failed to remove database file %s: %s\n",
					path,
					e2.Error())
			}
			return nil, err
		}
		db.log.Printf("[INFO] Initialized database at %s\n", path)
	}

	return db, nil
} // func Open(path string) (*Database, error)

func (db *Database) initialize() error {
	var err error
	var tx *sql.Tx

	if tx, err = db.db.Begin(); err != nil {
		db.log.Printf("[ERROR] Cannot begin transaction: %s\n",
			err.Error())
		return err
	}

	for _, q := range initQueries {
		if _, err = tx.Exec(q); err != nil {
			db.log.Printf("[ERROR] Cannot execute init query:\n%s\n%s\n",
				q,
				err.Error())
			if rbErr := tx.Rollback(); rbErr != nil {
				db.log.Printf("[CANTHAPPEN] Cannot rollback transaction: %s\n",
					rbErr.Error())
				return rbErr
			}
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		db.log.Printf("[CANTHAPPEN] Failed to commit init transaction: %s\n",
			err.Error())
		return err
	}

	return nil
} // func (db *Database) initialize() error

// Close closes the database connection.
func (db *Database) Close() error {
	var err error

	if db.tx != nil {
		if err = db.tx.Rollback(); err != nil {
			db.log.Printf("[CRITICAL] Cannot roll back pending transaction: %s\n",
				err.Error())
			return err
		}
		db.tx = nil
	}

	for key, stmt := range db.queries {
		if err = stmt.Close(); err != nil {
			db.log.Printf("[CRITICAL] Cannot close statement handle %s: %s\n",
				key,
				err.Error())
			return err
		}
		delete(db.queries, key)
	}

	if err = db.db.Close(); err != nil {
		db.log.Printf("[CRITICAL] Cannot close database: %s\n",
			err.Error())
	}

	db.db = nil
	return nil
} // func (db *Database) Close() error

func (db *Database) getQuery(id query.ID) (*sql.Stmt, error) {
	var (
		stmt *sql.Stmt
		ok   bool
		err  error
	)

	if stmt, ok = db.queries[id]; ok {
		return stmt, nil
	}

PREPARE_QUERY:
	if stmt, err = db.db.Prepare(dbQueries[id]); err != nil {
		if worthARetry(err) {
			waitForRetry()
			goto PREPARE_QUERY
		}

		db.log.Printf("[ERROR] Cannot prepare query %s: %s\n%s\n",
			id,
			err.Error(),
			dbQueries[id])
		return nil, err
	}

	db.queries[id] = stmt
	return stmt, nil
} // func (db *Database) getQuery(id query.ID) (*sql.Stmt, error)

// Begin begins an explicit database transaction.
// Only one transaction can be in progress at once, attempting to start one,
// while another transaction is already in progress will yield ErrTxInProgress.
func (db *Database) Begin() error {
	var err error

	if db.tx != nil {
		return ErrTxInProgress
	}

BEGIN_TX:
	for db.tx == nil {
		if db.tx, err = db.db.Begin(); err != nil {
			if worthARetry(err) {
				waitForRetry()
				continue BEGIN_TX
			} else {
				db.log.Printf("[ERROR] Failed to start transaction: %s\n",
					err.Error())
				return err
			}
		}
	}

	return nil
} // func (db *Database) Begin() error

// Rollback terminates a pending transaction, undoing any changes to the
// database made during that transaction.
func (db *Database) Rollback() error {
	var err error

	if db.tx == nil {
		return ErrNoTxInProgress
	} else if err = db.tx.Rollback(); err != nil {
		return fmt.Errorf("Cannot roll back transaction: %s",
			err.Error())
	}

	db.tx = nil
	return nil
} // func (db *Database) Rollback() error

// Commit ends the active transaction, making any changes made during that
// transaction permanent and visible to other connections.
func (db *Database) Commit() error {
	var err error

	if db.tx == nil {
		return ErrNoTxInProgress
	} else if err = db.tx.Commit(); err != nil {
		return fmt.Errorf("Cannot commit transaction: %s",
			err.Error())
	}

	db.tx = nil
	return nil
} // func (db *Database) Commit() error

// NotificationAdd records one delivered notification.
func (db *Database) NotificationAdd(e *Entry) error {
	const qid query.ID = query.NotificationAdd
	var (
		err  error
		stmt *sql.Stmt
	)

	if stmt, err = db.getQuery(qid); err != nil {
		db.log.Printf("[ERROR] Cannot prepare query %s: %s\n",
			qid,
			err.Error())
		return err
	} else if db.tx != nil {
		stmt = db.tx.Stmt(stmt)
	}

	var res sql.Result

EXEC_QUERY:
	if res, err = stmt.Exec(
		e.Timestamp.Unix(),
		e.Project,
		e.Identity,
		e.Title,
		e.Message,
		e.URL); err != nil {
		if worthARetry(err) {
			waitForRetry()
			goto EXEC_QUERY
		}

		db.log.Printf("[ERROR] Cannot add notification %q to history: %s\n",
			e.Title,
			err.Error())
		return err
	}

	if e.ID, err = res.LastInsertId(); err != nil {
		db.log.Printf("[ERROR] Cannot get ID of new history entry: %s\n",
			err.Error())
		return err
	}

	return nil
} // func (db *Database) NotificationAdd(e *Entry) error

// NotificationGetRecent returns the max most recently delivered
// notifications, newest first.
func (db *Database) NotificationGetRecent(max int) ([]Entry, error) {
	const qid query.ID = query.NotificationGetRecent
	var (
		err  error
		stmt *sql.Stmt
	)

	if stmt, err = db.getQuery(qid); err != nil {
		db.log.Printf("[ERROR] Cannot prepare query %s: %s\n",
			qid,
			err.Error())
		return nil, err
	} else if db.tx != nil {
		stmt = db.tx.Stmt(stmt)
	}

	var rows *sql.Rows

EXEC_QUERY:
	if rows, err = stmt.Query(max); err != nil {
		if worthARetry(err) {
			waitForRetry()
			goto EXEC_QUERY
		}

		db.log.Printf("[ERROR] Cannot query recent notifications: %s\n",
			err.Error())
		return nil, err
	}

	defer rows.Close() // nolint: errcheck

	var entries = make([]Entry, 0, max)

	for rows.Next() {
		var (
			e     Entry
			stamp int64
		)

		if err = rows.Scan(&e.ID, &stamp, &e.Project, &e.Identity, &e.Title, &e.Message, &e.URL); err != nil {
			db.log.Printf("[ERROR] Cannot scan history row: %s\n",
				err.Error())
			return nil, err
		}

		e.Timestamp = time.Unix(stamp, 0).UTC()
		entries = append(entries, e)
	}

	return entries, nil
} // func (db *Database) NotificationGetRecent(max int) ([]Entry, error)

// NotificationGetByProject returns the max most recent notifications
// for one project, newest first.
func (db *Database) NotificationGetByProject(project string, max int) ([]Entry, error) {
	const qid query.ID = query.NotificationGetByProject
	var (
		err  error
		stmt *sql.Stmt
	)

	if stmt, err = db.getQuery(qid); err != nil {
		db.log.Printf("[ERROR] Cannot prepare query %s: %s\n",
			qid,
			err.Error())
		return nil, err
	} else if db.tx != nil {
		stmt = db.tx.Stmt(stmt)
	}

	var rows *sql.Rows

EXEC_QUERY:
	if rows, err = stmt.Query(project, max); err != nil {
		if worthARetry(err) {
			waitForRetry()
			goto EXEC_QUERY
		}

		db.log.Printf("[ERROR] Cannot query notifications for %s: %s\n",
			project,
			err.Error())
		return nil, err
	}

	defer rows.Close() // nolint: errcheck

	var entries = make([]Entry, 0, max)

	for rows.Next() {
		var (
			e     Entry
			stamp int64
		)

		if err = rows.Scan(&e.ID, &stamp, &e.Identity, &e.Title, &e.Message, &e.URL); err != nil {
			db.log.Printf("[ERROR] Cannot scan history row: %s\n",
				err.Error())
			return nil, err
		}

		e.Project = project
		e.Timestamp = time.Unix(stamp, 0).UTC()
		entries = append(entries, e)
	}

	return entries, nil
} // func (db *Database) NotificationGetByProject(project string, max int) ([]Entry, error)

// NotificationCount returns the number of history entries.
func (db *Database) NotificationCount() (int64, error) {
	const qid query.ID = query.NotificationCount
	var (
		err  error
		stmt *sql.Stmt
	)

	if stmt, err = db.getQuery(qid); err != nil {
		db.log.Printf("[ERROR] Cannot prepare query %s: %s\n",
			qid,
			err.Error())
		return 0, err
	} else if db.tx != nil {
		stmt = db.tx.Stmt(stmt)
	}

	var cnt int64

EXEC_QUERY:
	if err = stmt.QueryRow().Scan(&cnt); err != nil {
		if worthARetry(err) {
			waitForRetry()
			goto EXEC_QUERY
		}

		db.log.Printf("[ERROR] Cannot count history entries: %s\n",
			err.Error())
		return 0, err
	}

	return cnt, nil
} // func (db *Database) NotificationCount() (int64, error)
