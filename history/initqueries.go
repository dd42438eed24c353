// /home/krylon/go/src/github.com/blicero/glping/history/initqueries.go
// -*- mode: go; coding: utf-8; -*-
// Created on 11. 06. 2024 by Benjamin Walkenhorst
// (c) 2024 Benjamin Walkenhorst
// Time-stamp: <2024-06-11 18:40:19 krylon>

package history

var initQueries = []string{
	`
CREATE TABLE notification (
    id        INTEGER PRIMARY KEY,
    timestamp INTEGER NOT NULL,
    project   TEXT NOT NULL,
    identity  TEXT NOT NULL DEFAULT '',
    title     TEXT NOT NULL,
    message   TEXT NOT NULL,
    url       TEXT NOT NULL DEFAULT '',
    CHECK (timestamp > 1717200000) -- 2024-06-01
)
`,
	"CREATE INDEX notification_time_idx ON notification (timestamp)",
	"CREATE INDEX notification_project_idx ON notification (project)",
}
