// /home/krylon/go/src/github.com/blicero/glping/lock/lock.go
// -*- mode: go; coding: utf-8; -*-
// Created on 12. 06. 2024 by Benjamin Walkenhorst
// (c) 2024 Benjamin Walkenhorst
// Time-stamp: <2024-08-30 19:40:11 krylon>

// Package lock makes sure only one instance of the application runs
// per user. Two pollers sharing one state cache would double every
// notification.
package lock

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/blicero/glping/common"
	"github.com/blicero/glping/logdomain"
	"golang.org/x/sys/unix"
)

// Lock is an advisory, per-user instance lock. The kernel releases it
// when the process dies, so a crashed instance never blocks the next
// one.
type Lock struct {
	log  *log.Logger
	path string
	fh   *os.File
}

// Acquire tries to take the instance lock. It returns (nil, false,
// nil) if another instance already holds it; errors are reserved for
// actual trouble with the lock file.
func Acquire() (*Lock, bool, error) {
	var (
		err error
		l   = &Lock{
			path: filepath.Join(common.BaseDir, fmt.Sprintf("%s.lock", common.AppName)),
		}
	)

	if l.log, err = common.GetLogger(logdomain.Common); err != nil {
		return nil, false, err
	}

	if l.fh, err = os.OpenFile(l.path, os.O_RDWR|os.O_CREATE, 0600); err != nil {
		return nil, false, fmt.Errorf("Cannot open lock file %s: %s",
			l.path,
			err.Error())
	}

	if err = unix.Flock(int(l.fh.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		l.fh.Close() // nolint: errcheck
		if err == unix.EWOULDBLOCK {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("Cannot lock %s: %s",
			l.path,
			err.Error())
	}

	// The contents are purely informational, for a human poking
	// around the base directory.
	l.fh.Truncate(0) // nolint: errcheck
	l.fh.Seek(0, 0)  // nolint: errcheck
	fmt.Fprintf(l.fh, "%d %s\n", os.Getpid(), common.GetUUID()) // nolint: errcheck
	l.fh.Sync() // nolint: errcheck

	return l, true, nil
} // func Acquire() (*Lock, bool, error)

// Release gives up the instance lock.
func (l *Lock) Release() {
	if l == nil || l.fh == nil {
		return
	}

	if err := unix.Flock(int(l.fh.Fd()), unix.LOCK_UN); err != nil {
		l.log.Printf("[ERROR] Cannot unlock %s: %s\n",
			l.path,
			err.Error())
	}

	l.fh.Close()      // nolint: errcheck
	os.Remove(l.path) // nolint: errcheck
	l.fh = nil
} // func (l *Lock) Release()
