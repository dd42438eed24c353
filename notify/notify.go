// /home/krylon/go/src/github.com/blicero/glping/notify/notify.go
// -*- mode: go; coding: utf-8; -*-
// Created on 10. 06. 2024 by Benjamin Walkenhorst
// (c) 2024 Benjamin Walkenhorst
// Time-stamp: <2024-08-30 18:05:41 krylon>

// Package notify delivers rendered notifications to the desktop via
// DBus, falling back to plain console output when no session bus is
// available (headless boxes, ssh sessions).
package notify

import (
	"fmt"
	"log"
	"os"

	"github.com/blicero/glping/common"
	"github.com/blicero/glping/logdomain"
	"github.com/blicero/glping/render"
	"github.com/godbus/dbus/v5"
)

const (
	notifyObj    = "org.freedesktop.Notifications"
	notifyPath   = "/org/freedesktop/Notifications"
	notifyMethod = "org.freedesktop.Notifications.Notify"
	// Per the Desktop Notifications spec, -1 lets the server pick
	// the expiration timeout.
	notifyTimeout = int32(-1)
)

// Notifier sends desktop notifications.
type Notifier struct {
	log *log.Logger
	bus *dbus.Conn
}

// New creates a Notifier. Failure to reach the session bus is not an
// error; the Notifier falls back to the console.
func New() (*Notifier, error) {
	var (
		err error
		n   = new(Notifier)
	)

	if n.log, err = common.GetLogger(logdomain.Notify); err != nil {
		return nil, err
	}

	if n.bus, err = dbus.SessionBus(); err != nil {
		n.log.Printf("[INFO] No DBus session bus (%s), falling back to console output\n",
			err.Error())
		n.bus = nil
	}

	return n, nil
} // func New() (*Notifier, error)

// Deliver sends one notification to the desktop and echoes it to the
// console. The console path never fails, so something always shows up
// even when the desktop is not reachable.
func (n *Notifier) Deliver(note *render.Notification) error {
	n.echo(note)

	if n.bus == nil {
		return nil
	}

	var obj = n.bus.Object(notifyObj, notifyPath)
	var res = obj.Call(
		notifyMethod,
		0,
		common.AppName,
		uint32(0),
		note.Icon,
		note.Title,
		n.body(note),
		[]string{},
		map[string]dbus.Variant{},
		notifyTimeout,
	)

	if res.Err != nil {
		n.log.Printf("[ERROR] Cannot send notification %q: %s\n",
			note.Title,
			res.Err.Error())
		return res.Err
	}

	return nil
} // func (n *Notifier) Deliver(note *render.Notification) error

// body appends the deep link to the message so it is clickable in
// notification servers that render URLs.
func (n *Notifier) body(note *render.Notification) string {
	if note.URL == "" {
		return note.Message
	}

	return fmt.Sprintf("%s\n%s", note.Message, note.URL)
} // func (n *Notifier) body(note *render.Notification) string

// echo prints the notification to stdout.
func (n *Notifier) echo(note *render.Notification) {
	fmt.Fprintf(os.Stdout, "[%s] %s\n",
		note.Title,
		note.Message)
	if note.URL != "" {
		fmt.Fprintf(os.Stdout, "    %s\n", note.URL)
	}
} // func (n *Notifier) echo(note *render.Notification)
