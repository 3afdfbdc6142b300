// Package auditlog persists a record of each completed or fatally
// aborted handshake. This is strictly observability: unlike TLS session
// resumption (a Non-goal, spec.md §1), nothing here is ever read back to
// skip a handshake step — rows are written once, after the channel
// reaches a terminal state, and never consulted by internal/tlsclient.
package auditlog

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Entry is one row of the handshake audit log.
type Entry struct {
	ID          uint `gorm:"primaryKey"`
	StartedAt   time.Time
	FinishedAt  time.Time
	PeerAddr    string
	Version     string
	CipherSuite string
	Outcome     string // "active", "failed"
	AlertCode   uint8  // 0 when Outcome == "active"
	FailureMsg  string
}

// Log wraps the gorm handle, mirroring the FDO server's DatabaseConfig
// "type + dsn" dispatch pattern (cmd/config.go's DatabaseConfig.validate).
type Log struct {
	db *gorm.DB
}

// Open opens (and migrates) the audit log database. driverType is
// "sqlite" or "postgres", matching the values cmd.DatabaseConfig.Type
// accepts.
func Open(driverType, dsn string) (*Log, error) {
	var dialector gorm.Dialector
	switch driverType {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("auditlog: unsupported database type %q", driverType)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("auditlog: opening database: %w", err)
	}

	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("auditlog: migrating schema: %w", err)
	}
	return &Log{db: db}, nil
}

// RecordSuccess appends a row for a handshake that reached the active
// state.
func (l *Log) RecordSuccess(peerAddr, version, cipherSuite string, started, finished time.Time) error {
	entry := Entry{
		StartedAt:   started,
		FinishedAt:  finished,
		PeerAddr:    peerAddr,
		Version:     version,
		CipherSuite: cipherSuite,
		Outcome:     "active",
	}
	return l.db.Create(&entry).Error
}

// RecordFailure appends a row for a handshake that aborted with a fatal
// alert.
func (l *Log) RecordFailure(peerAddr string, alertCode uint8, failureMsg string, started, finished time.Time) error {
	entry := Entry{
		StartedAt:  started,
		FinishedAt: finished,
		PeerAddr:   peerAddr,
		Outcome:    "failed",
		AlertCode:  alertCode,
		FailureMsg: failureMsg,
	}
	return l.db.Create(&entry).Error
}

// Recent returns the n most recently finished entries, newest first.
func (l *Log) Recent(n int) ([]Entry, error) {
	var entries []Entry
	err := l.db.Order("finished_at DESC").Limit(n).Find(&entries).Error
	return entries, err
}

// Close releases the underlying database connection.
func (l *Log) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
