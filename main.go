// /home/krylon/go/src/github.com/blicero/glping/main.go
// -*- mode: go; coding: utf-8; -*-
// Created on 02. 06. 2024 by Benjamin Walkenhorst
// (c) 2024 Benjamin Walkenhorst
// Time-stamp: <2024-08-30 21:03:12 krylon>

package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blicero/glping/common"
	"github.com/blicero/glping/config"
	"github.com/blicero/glping/history"
	"github.com/blicero/glping/lock"
	"github.com/blicero/glping/notify"
	"github.com/blicero/glping/render"
	"github.com/blicero/glping/store"
	"github.com/blicero/glping/watcher"
)

const poolSize = 2

func main() {
	fmt.Printf("%s %s\n",
		common.AppName,
		common.Version)

	var (
		err                          error
		baseDir, wwwAddr             string
		once, resetCache, testNotify bool
		verbose                      bool
		histCnt                      int
		projectID                    int64
		interval                     time.Duration
	)

	flag.StringVar(
		&baseDir,
		"basedir",
		common.BaseDir,
		"The directory where application-specific files live")

	flag.BoolVar(
		&once,
		"once",
		false,
		"Perform a single check cycle and exit")

	flag.BoolVar(
		&resetCache,
		"reset-cache",
		false,
		"Discard all dedup state before checking")

	flag.BoolVar(
		&testNotify,
		"test-notification",
		false,
		"Send a test notification and exit")

	flag.IntVar(
		&histCnt,
		"history",
		0,
		"Display the N most recent notifications and exit")

	flag.Int64Var(
		&projectID,
		"project",
		0,
		"Watch only the project with the given ID")

	flag.DurationVar(
		&interval,
		"interval",
		0,
		"Time between check cycles (overrides the configuration)")

	flag.StringVar(
		&wwwAddr,
		"www",
		"",
		"Serve the status web interface on the given address")

	flag.BoolVar(
		&verbose,
		"verbose",
		false,
		"Log everything, including trace output")

	flag.Parse()

	common.SetVerbose(verbose)

	if baseDir != common.BaseDir {
		if err = common.SetBaseDir(baseDir); err != nil {
			fmt.Fprintf(os.Stderr,
				"Cannot set base directory to %s: %s\n",
				baseDir,
				err.Error())
			os.Exit(1)
		}
	} else if err = common.InitApp(); err != nil {
		fmt.Fprintf(os.Stderr,
			"Cannot initialize application environment: %s\n",
			err.Error())
		os.Exit(1)
	}

	if testNotify {
		sendTestNotification()
		return
	}

	if histCnt > 0 {
		showHistory(histCnt)
		return
	}

	var cfg *config.Config

	if cfg, err = config.Load(common.ConfigPath); err != nil {
		fmt.Fprintf(os.Stderr,
			"Cannot load configuration: %s\n",
			err.Error())
		os.Exit(1)
	}

	cfg.ProjectID = projectID

	if interval > 0 {
		cfg.Check.Interval = interval
	}
	if wwwAddr != "" {
		cfg.WWWAddr = wwwAddr
	}

	if err = cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr,
			"Invalid configuration: %s\n",
			err.Error())
		os.Exit(1)
	}

	// Two instances sharing one dedup state would double every
	// notification, so the second instance bows out quietly.
	var (
		instance *lock.Lock
		got      bool
	)

	if instance, got, err = lock.Acquire(); err != nil {
		fmt.Fprintf(os.Stderr,
			"Cannot acquire instance lock: %s\n",
			err.Error())
		os.Exit(1)
	} else if !got {
		fmt.Printf("Another instance of %s is already running.\n",
			common.AppName)
		os.Exit(0)
	}

	defer instance.Release()

	var st *store.Store

	if st, err = store.Open(cfg.CacheFile, cfg.Check.Backlog); err != nil {
		fmt.Fprintf(os.Stderr,
			"Cannot open state cache %s: %s\n",
			cfg.CacheFile,
			err.Error())
		os.Exit(1)
	}

	if resetCache {
		fmt.Println("Discarding all dedup state.")
		st.Reset()
	}

	var pool *history.Pool

	if pool, err = history.NewPool(common.DbPath, poolSize); err != nil {
		fmt.Fprintf(os.Stderr,
			"Cannot open notification history at %s: %s\n",
			common.DbPath,
			err.Error())
		pool = nil
	} else {
		defer pool.Close() // nolint: errcheck
	}

	var w *watcher.Watcher

	if w, err = watcher.Create(cfg, st, pool); err != nil {
		fmt.Fprintf(os.Stderr,
			"Cannot create watcher: %s\n",
			err.Error())
		os.Exit(1)
	}

	var who string

	if who, err = w.TestConnection(); err != nil {
		fmt.Fprintf(os.Stderr,
			"Cannot connect to %s: %s\n",
			cfg.Gitlab.URL,
			err.Error())
		os.Exit(1)
	}

	fmt.Printf("Connected to %s as %s\n",
		cfg.Gitlab.URL,
		who)

	if once {
		var cnt int

		if cnt, err = w.CheckOnce(); err != nil {
			fmt.Fprintf(os.Stderr,
				"Check cycle failed: %s\n",
				err.Error())
			os.Exit(1)
		}

		fmt.Printf("Delivered %d notification(s).\n", cnt)
		return
	}

	var sigQ = make(chan os.Signal, 1)
	signal.Notify(sigQ, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)

	go func() {
		var sig = <-sigQ
		fmt.Printf("Quitting on signal %s\n", sig)
		w.Stop()
	}()

	w.Run()
} // func main()

func sendTestNotification() {
	var (
		err error
		n   *notify.Notifier
	)

	if n, err = notify.New(); err != nil {
		fmt.Fprintf(os.Stderr,
			"Cannot create notifier: %s\n",
			err.Error())
		os.Exit(1)
	}

	var note = render.Notification{
		Title:   common.AppName,
		Message: "If you can read this, desktop notifications work.",
	}

	if err = n.Deliver(&note); err != nil {
		fmt.Fprintf(os.Stderr,
			"Cannot deliver test notification: %s\n",
			err.Error())
		os.Exit(1)
	}

	fmt.Println("Test notification sent.")
} // func sendTestNotification()

func showHistory(cnt int) {
	var (
		err     error
		db      *history.Database
		entries []history.Entry
	)

	if db, err = history.Open(common.DbPath); err != nil {
		fmt.Fprintf(os.Stderr,
			"Cannot open notification history at %s: %s\n",
			common.DbPath,
			err.Error())
		os.Exit(1)
	}

	defer db.Close() // nolint: errcheck

	if entries, err = db.NotificationGetRecent(cnt); err != nil {
		fmt.Fprintf(os.Stderr,
			"Cannot read notification history: %s\n",
			err.Error())
		os.Exit(1)
	}

	if len(entries) == 0 {
		fmt.Println("The notification history is empty.")
		return
	}

	for _, e := range entries {
		fmt.Printf("%s  [%s] %s\n",
			e.Timestamp.Format(common.TimestampFormatMinute),
			e.Project,
			e.Message)
		if e.URL != "" {
			fmt.Printf("%21s %s\n", "", e.URL)
		}
	}
} // func showHistory(cnt int)
