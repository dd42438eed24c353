// /home/krylon/go/src/github.com/blicero/glping/history/dbqueries.go
// -*- mode: go; coding: utf-8; -*-
// Created on 11. 06. 2024 by Benjamin Walkenhorst
// (c) 2024 Benjamin Walkenhorst
// Time-stamp: <2024-06-11 19:02:55 krylon>

package history

import "github.com/blicero/glping/history/query"

var dbQueries = map[query.ID]string{
	query.NotificationAdd: `
INSERT INTO notification (timestamp, project, identity, title, message, url)
VALUES                   (        ?,       ?,        ?,     ?,       ?,   ?)
`,
	query.NotificationGetRecent: `
SELECT
    id,
    timestamp,
    project,
    identity,
    title,
    message,
    url
FROM notification
ORDER BY timestamp DESC, id DESC
LIMIT ?
`,
	query.NotificationGetByProject: `
SELECT
    id,
    timestamp,
    identity,
    title,
    message,
    url
FROM notification
WHERE project = ?
ORDER BY timestamp DESC, id DESC
LIMIT ?
`,
	query.NotificationCount: "SELECT COUNT(id) FROM notification",
}
