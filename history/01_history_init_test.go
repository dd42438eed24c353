// /home/krylon/go/src/github.com/blicero/glping/history/01_history_init_test.go
// -*- mode: go; coding: utf-8; -*-
// Created on 18. 06. 2024 by Benjamin Walkenhorst
// (c) 2024 Benjamin Walkenhorst
// Time-stamp: <2024-08-30 23:12:40 krylon>

package history

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/blicero/glping/common"
)

var (
	testDir string
	db      *Database
)

func init() {
	var err error

	if testDir, err = os.MkdirTemp("", "glping_history_test"); err != nil {
		panic(err)
	} else if err = common.SetBaseDir(testDir); err != nil {
		panic(err)
	}
} // func init()

func TestCreateDatabase(t *testing.T) {
	var (
		err  error
		path = filepath.Join(testDir, "history.db")
	)

	if db, err = Open(path); err != nil {
		db = nil
		t.Fatalf("Cannot open database at %s: %s",
			path,
			err.Error())
	}
} // func TestCreateDatabase(t *testing.T)

// We prepare each query once to make sure there are no syntax errors in the SQL.
func TestPrepareQueries(t *testing.T) {
	if db == nil {
		t.SkipNow()
	}

	for id := range dbQueries {
		var err error
		if _, err = db.getQuery(id); err != nil {
			t.Errorf("Cannot prepare query %s: %s",
				id,
				err.Error())
		}
	}
} // func TestPrepareQueries(t *testing.T)
