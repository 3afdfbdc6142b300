package auditlog

import (
	"testing"
	"time"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	l, err := Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := l.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return l
}

func TestRecordSuccessAndRecent(t *testing.T) {
	l := openTestLog(t)

	started := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	finished := started.Add(50 * time.Millisecond)
	if err := l.RecordSuccess("example.test:443", "tls1.1", "TLS_RSA_WITH_RC4_128_SHA", started, finished); err != nil {
		t.Fatalf("RecordSuccess: %v", err)
	}

	entries, err := l.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Outcome != "active" {
		t.Errorf("Outcome = %q, want active", entries[0].Outcome)
	}
	if entries[0].CipherSuite != "TLS_RSA_WITH_RC4_128_SHA" {
		t.Errorf("CipherSuite = %q, want TLS_RSA_WITH_RC4_128_SHA", entries[0].CipherSuite)
	}
}

func TestRecordFailure(t *testing.T) {
	l := openTestLog(t)

	started := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	finished := started.Add(5 * time.Millisecond)
	if err := l.RecordFailure("example.test:443", 40, "handshake_failure: bad suite", started, finished); err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}

	entries, err := l.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Outcome != "failed" {
		t.Errorf("Outcome = %q, want failed", entries[0].Outcome)
	}
	if entries[0].AlertCode != 40 {
		t.Errorf("AlertCode = %d, want 40", entries[0].AlertCode)
	}
}

func TestRecentOrdersNewestFirst(t *testing.T) {
	l := openTestLog(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		started := base.Add(time.Duration(i) * time.Second)
		finished := started.Add(10 * time.Millisecond)
		if err := l.RecordSuccess("example.test:443", "tls1.1", "suite", started, finished); err != nil {
			t.Fatalf("RecordSuccess %d: %v", i, err)
		}
	}

	entries, err := l.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if !entries[0].FinishedAt.After(entries[1].FinishedAt) {
		t.Errorf("entries not ordered newest first: %v, %v", entries[0].FinishedAt, entries[1].FinishedAt)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open("mysql", "dsn"); err == nil {
		t.Fatal("Open with unsupported driver type: want error, got nil")
	}
}
