// /home/krylon/go/src/github.com/blicero/glping/history/pool.go
// -*- mode: go; coding: utf-8; -*-
// Created on 12. 06. 2024 by Benjamin Walkenhorst
// (c) 2024 Benjamin Walkenhorst
// Time-stamp: <2024-06-12 09:41:27 krylon>

package history

import "sync"

// Pool is a pool of database connections. The watcher's polling loop
// and the status web server use it to share connections without
// tripping over SQLite's locking.
type Pool struct {
	lock sync.Mutex
	pool chan *Database
}

// NewPool opens cnt connections to the history database at the given
// path and returns the Pool containing them.
func NewPool(path string, cnt int) (*Pool, error) {
	var p = &Pool{
		pool: make(chan *Database, cnt),
	}

	for i := 0; i < cnt; i++ {
		var (
			err error
			db  *Database
		)

		if db, err = Open(path); err != nil {
			p.Close() // nolint: errcheck
			return nil, err
		}

		p.pool <- db
	}

	return p, nil
} // func NewPool(path string, cnt int) (*Pool, error)

// Get returns a connection from the Pool, blocking until one is
// available.
func (p *Pool) Get() *Database {
	return <-p.pool
} // func (p *Pool) Get() *Database

// Put returns a connection to the Pool.
func (p *Pool) Put(db *Database) {
	p.pool <- db
} // func (p *Pool) Put(db *Database)

// Close closes all connections in the Pool.
func (p *Pool) Close() error {
	p.lock.Lock()
	defer p.lock.Unlock()

	var err error

	for {
		select {
		case db := <-p.pool:
			if e := db.Close(); e != nil && err == nil {
				err = e
			}
		default:
			return err
		}
	}
} // func (p *Pool) Close() error
