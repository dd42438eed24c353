// /home/krylon/go/src/github.com/blicero/glping/watcher/web.go
// -*- mode: go; coding: utf-8; -*-
// Created on 14. 06. 2024 by Benjamin Walkenhorst
// (c) 2024 Benjamin Walkenhorst
// Time-stamp: <2024-08-30 20:44:09 krylon>

package watcher

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/blicero/glping/common"
	"github.com/blicero/glping/history"
	"github.com/gorilla/mux"
	"github.com/pquerna/ffjson/ffjson"
)

const defaultHistoryCount = 25

// statusData is what /status reports.
type statusData struct {
	Version      string `json:"version"`
	Instance     string `json:"instance"`
	ProjectCount int    `json:"project_count"`
	LastChecked  string `json:"last_checked"`
	Alive        bool   `json:"alive"`
}

// serveWWW runs the small status web interface. It is strictly
// read-only and meant for localhost.
func (w *Watcher) serveWWW() {
	w.router = mux.NewRouter()
	w.router.HandleFunc("/status", w.handleStatus)
	w.router.HandleFunc("/history", w.handleHistory)
	w.router.HandleFunc("/history/{cnt:(?:\\d+)}", w.handleHistory)

	var srv = http.Server{
		Addr:              w.cfg.WWWAddr,
		Handler:           w.router,
		ReadHeaderTimeout: time.Second * 5,
		ErrorLog:          w.log,
	}

	w.log.Printf("[INFO] Serving status interface on %s\n",
		w.cfg.WWWAddr)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		w.log.Printf("[ERROR] Status web server failed: %s\n",
			err.Error())
	}
} // func (w *Watcher) serveWWW()

func (w *Watcher) handleStatus(res http.ResponseWriter, req *http.Request) {
	var (
		err    error
		buf    []byte
		status = statusData{
			Version:      common.Version,
			Instance:     w.api.BaseURL(),
			ProjectCount: w.store.ProjectCount(),
			LastChecked:  w.store.LastChecked().Format(common.TimestampFormat),
			Alive:        w.IsAlive(),
		}
	)

	if buf, err = ffjson.Marshal(&status); err != nil {
		w.log.Printf("[ERROR] Cannot serialize status: %s\n",
			err.Error())
		res.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintln(res, err.Error()) // nolint: errcheck
		return
	}

	defer ffjson.Pool(buf)

	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(http.StatusOK)
	res.Write(buf) // nolint: errcheck
} // func (w *Watcher) handleStatus(res http.ResponseWriter, req *http.Request)

func (w *Watcher) handleHistory(res http.ResponseWriter, req *http.Request) {
	if w.hist == nil {
		res.WriteHeader(http.StatusNotFound)
		fmt.Fprintln(res, "No notification history is being kept") // nolint: errcheck
		return
	}

	var cnt = defaultHistoryCount
	if arg, ok := mux.Vars(req)["cnt"]; ok {
		// The route pattern guarantees digits only.
		cnt, _ = strconv.Atoi(arg)
		if cnt < 1 {
			cnt = defaultHistoryCount
		}
	}

	var db = w.hist.Get()
	defer w.hist.Put(db)

	var (
		err     error
		buf     []byte
		entries []history.Entry
	)

	if entries, err = db.NotificationGetRecent(cnt); err != nil {
		res.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintln(res, err.Error()) // nolint: errcheck
		return
	} else if buf, err = ffjson.Marshal(entries); err != nil {
		w.log.Printf("[ERROR] Cannot serialize history: %s\n",
			err.Error())
		res.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintln(res, err.Error()) // nolint: errcheck
		return
	}

	defer ffjson.Pool(buf)

	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(http.StatusOK)
	res.Write(buf) // nolint: errcheck
} // func (w *Watcher) handleHistory(res http.ResponseWriter, req *http.Request)
