package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Journal entry kinds.
const (
	KindSpawned   = "spawned"
	KindDied      = "died"
	KindReturned  = "returned"
	KindDestroyed = "destroyed"
	KindChain     = "chain"
)

// JournalEntry is one actor lifecycle row.
type JournalEntry struct {
	Tick       uint64
	Kind       string
	EntityID   uint64
	Prototype  string
	GroupID    int
	RelatedID  uint64 // successor entity, or chain id for chain rows
	RecordedAt time.Time
}

var journalColumns = []string{
	"tick", "kind", "entity_id", "prototype", "group_id", "related_id", "recorded_at",
}

type JournalRepo struct {
	db *DB
}

func NewJournalRepo(db *DB) *JournalRepo {
	return &JournalRepo{db: db}
}

// WriteBatch copies a batch of entries in a single transaction.
func (r *JournalRepo) WriteBatch(ctx context.Context, entries []JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("journal begin: %w", err)
	}
	defer tx.Rollback(ctx)

	n, err := tx.CopyFrom(ctx, pgx.Identifier{"actor_journal"}, journalColumns, pgx.CopyFromRows(journalRows(entries)))
	if err != nil {
		return fmt.Errorf("journal copy: %w", err)
	}
	if int(n) != len(entries) {
		return fmt.Errorf("journal copy: wrote %d of %d rows", n, len(entries))
	}
	return tx.Commit(ctx)
}

// Recent returns the newest entries, newest first.
func (r *JournalRepo) Recent(ctx context.Context, limit int) ([]JournalEntry, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT tick, kind, entity_id, prototype, group_id, related_id, recorded_at
		 FROM actor_journal ORDER BY id DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("journal query: %w", err)
	}
	defer rows.Close()

	var out []JournalEntry
	for rows.Next() {
		var e JournalEntry
		var tick, entity, related int64
		if err := rows.Scan(&tick, &e.Kind, &entity, &e.Prototype, &e.GroupID, &related, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("journal scan: %w", err)
		}
		e.Tick, e.EntityID, e.RelatedID = uint64(tick), uint64(entity), uint64(related)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Postgres has no unsigned integers; entity ids and ticks fit in int64.
func journalRows(entries []JournalEntry) [][]any {
	rows := make([][]any, len(entries))
	for i, e := range entries {
		at := e.RecordedAt
		if at.IsZero() {
			at = time.Now()
		}
		rows[i] = []any{
			int64(e.Tick), e.Kind, int64(e.EntityID), e.Prototype,
			int32(e.GroupID), int64(e.RelatedID), at,
		}
	}
	return rows
}
