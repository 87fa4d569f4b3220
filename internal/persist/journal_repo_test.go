package persist

import (
	"testing"
	"time"
)

func TestJournalRows(t *testing.T) {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	rows := journalRows([]JournalEntry{
		{Tick: 7, Kind: KindDied, EntityID: 1<<32 | 5, Prototype: "skeleton", GroupID: 2, RelatedID: 9, RecordedAt: at},
		{Tick: 8, Kind: KindSpawned, EntityID: 3},
	})
	if len(rows) != 2 {
		t.Fatalf("rows %d", len(rows))
	}
	if len(rows[0]) != len(journalColumns) {
		t.Fatalf("row width %d, columns %d", len(rows[0]), len(journalColumns))
	}
	if rows[0][0] != int64(7) || rows[0][2] != int64(1<<32|5) || rows[0][4] != int32(2) || rows[0][6] != at {
		t.Fatalf("row %v", rows[0])
	}
	if ts, ok := rows[1][6].(time.Time); !ok || ts.IsZero() {
		t.Fatalf("missing timestamp defaulted to %v", rows[1][6])
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}
	if len(entries) == 0 {
		t.Fatalf("no migrations embedded")
	}
}
