// /home/krylon/go/src/github.com/blicero/glping/common/common.go
// -*- mode: go; coding: utf-8; -*-
// Created on 02. 06. 2024 by Benjamin Walkenhorst
// (c) 2024 Benjamin Walkenhorst
// Time-stamp: <2024-08-21 19:44:12 krylon>

// Package common provides constants and settings used throughout
// the application, plus the factory function for Loggers.
package common

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/blicero/glping/logdomain"
	"github.com/blicero/krylib"
	"github.com/hashicorp/logutils"
	"github.com/odeke-em/go-uuid"
)

// Debug, if true, causes the log level to be lowered to TRACE.
const (
	Debug                    = false
	AppName                  = "glping"
	Version                  = "0.3.1"
	TimestampFormat          = "2006-01-02 15:04:05"
	TimestampFormatMinute    = "2006-01-02 15:04"
	TimestampFormatSubSecond = "2006-01-02 15:04:05.0000 MST"
	TimestampFormatDate      = "2006-01-02"
)

// LogLevels are the valid log levels, in ascending order of severity.
var LogLevels = []logutils.LogLevel{
	"TRACE",
	"DEBUG",
	"INFO",
	"WARN",
	"ERROR",
	"CRITICAL",
	"CANTHAPPEN",
	"SILENT",
}

var minLogLevel logutils.LogLevel = "INFO"

func init() {
	if Debug {
		minLogLevel = "TRACE"
	}
} // func init()

// SetVerbose lowers the log level to TRACE. It affects only Loggers
// created afterwards, so call it before any component is assembled.
func SetVerbose(v bool) {
	if v {
		minLogLevel = "TRACE"
	}
} // func SetVerbose(v bool)

// BaseDir is the directory where the application keeps its cache,
// log file, and notification history.
var BaseDir = filepath.Join(
	os.Getenv("HOME"),
	fmt.Sprintf(".%s.d", AppName))

// LogPath is the path of the log file.
var LogPath = filepath.Join(BaseDir, fmt.Sprintf("%s.log", AppName))

// CachePath is the path of the state cache document.
var CachePath = filepath.Join(BaseDir, "cache.json")

// CacheLockPath is the path of the advisory lock protecting the cache.
var CacheLockPath = filepath.Join(BaseDir, "cache.lock")

// DbPath is the path of the notification history database.
var DbPath = filepath.Join(BaseDir, "history.db")

// ConfigPath is the path of the optional configuration file.
var ConfigPath = filepath.Join(BaseDir, "config.yaml")

// SetBaseDir sets the base directory to the given path and adjusts
// the various file paths that live beneath it.
func SetBaseDir(path string) error {
	BaseDir = path
	LogPath = filepath.Join(BaseDir, fmt.Sprintf("%s.log", AppName))
	CachePath = filepath.Join(BaseDir, "cache.json")
	CacheLockPath = filepath.Join(BaseDir, "cache.lock")
	DbPath = filepath.Join(BaseDir, "history.db")
	ConfigPath = filepath.Join(BaseDir, "config.yaml")

	return InitApp()
} // func SetBaseDir(path string) error

// InitApp creates the base directory if it does not exist already.
func InitApp() error {
	var (
		err   error
		exist bool
	)

	if exist, err = krylib.Fexists(BaseDir); err != nil {
		return err
	} else if exist {
		return nil
	} else if err = os.MkdirAll(BaseDir, 0700); err != nil {
		return fmt.Errorf("Error creating BaseDir %s: %s",
			BaseDir,
			err.Error())
	}

	return nil
} // func InitApp() error

// GetLogger returns a Logger for the given log source.
func GetLogger(dom logdomain.ID) (*log.Logger, error) {
	var (
		err     error
		logfile *os.File
	)

	if err = InitApp(); err != nil {
		return nil, fmt.Errorf("Error initializing application environment: %s",
			err.Error())
	}

	if logfile, err = os.OpenFile(LogPath, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0600); err != nil {
		return nil, fmt.Errorf("Error opening log file %s: %s",
			LogPath,
			err.Error())
	}

	var writer = io.MultiWriter(os.Stderr, logfile)
	var filter = &logutils.LevelFilter{
		Levels:   LogLevels,
		MinLevel: minLogLevel,
		Writer:   writer,
	}

	var logger = log.New(
		filter,
		fmt.Sprintf("%-9s ", dom),
		log.Ldate|log.Ltime|log.Lshortfile)

	return logger, nil
} // func GetLogger(dom logdomain.ID) (*log.Logger, error)

// GetUUID returns a randomized UUID in string form.
func GetUUID() string {
	return uuid.NewRandom().String()
} // func GetUUID() string

// Now returns the current time in UTC, truncated to full seconds.
// The GitLab API does not deal in sub-second precision, and neither do we.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
} // func Now() time.Time
