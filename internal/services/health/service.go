package health

import (
	"context"
	"time"
)

const pingTimeout = 2 * time.Second

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Service reports whether the API and its backing stores are usable.
type Service struct {
	DB          Pinger
	QueueDriver string
	Storage     string
}

// NewService constructs a health service. db may be nil when running on
// in-memory repositories.
func NewService(db Pinger, queueDriver, storage string) *Service {
	return &Service{DB: db, QueueDriver: queueDriver, Storage: storage}
}

// Report is the health payload.
type Report struct {
	OK       bool   `json:"ok"`
	Database string `json:"database"`
	Queue    string `json:"queue"`
	Storage  string `json:"storage"`
}

// Status pings the database, if any, and describes the configured backends.
func (s *Service) Status(ctx context.Context) Report {
	r := Report{OK: true, Database: "memory", Queue: s.QueueDriver, Storage: s.Storage}
	if s.DB == nil {
		return r
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.DB.PingContext(ctx); err != nil {
		r.OK = false
		r.Database = "unreachable"
		return r
	}
	r.Database = "postgres"
	return r
}
