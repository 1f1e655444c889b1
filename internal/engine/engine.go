// Package engine implements the document versioning and workflow status
// machines over the entity store. Every mutation runs in a single
// transaction and appends one audit event before committing.
package engine

import (
	"database/sql"
	"time"

	"teamline/internal/config"
	"teamline/internal/events"
	"teamline/internal/repo"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
}

// events returns the audit writer bound to the engine clock, so frozen test
// clocks stamp events too.
func (e Engine) events() events.Writer {
	w := e.Events
	w.Now = e.Now
	return w
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) nowRFC3339() string {
	return e.now().UTC().Format(time.RFC3339)
}
