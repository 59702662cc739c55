package tx

import (
	"context"
	"database/sql"
	"sync"
	"time"

	dErrors "licensure/pkg/domain-errors"
)

// Runner executes a function as one atomic unit. Services key the call by the
// aggregate they mutate so concurrent calls for the same aggregate serialize.
type Runner interface {
	RunInTx(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// numShards distributes aggregate keys across mutexes so unrelated
// aggregates never contend.
const numShards = 128

// defaultTxTimeout is the maximum duration for an in-memory transaction.
const defaultTxTimeout = 5 * time.Second

// ShardedRunner is the in-memory transactional boundary: a sharded mutex
// keyed by aggregate ID. It provides mutual exclusion, not rollback; a map
// write made before a later step fails stays applied. The in-memory stores
// keep units consistent anyway because their only fallible steps (map
// lookups) run before the writes, and the audit append cannot fail.
type ShardedRunner struct {
	shards  [numShards]sync.Mutex
	timeout time.Duration
}

func NewShardedRunner() *ShardedRunner {
	return &ShardedRunner{timeout: defaultTxTimeout}
}

func (r *ShardedRunner) RunInTx(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	shard := hashKey(key) % numShards
	r.shards[shard].Lock()
	defer r.shards[shard].Unlock()

	// Check again after acquiring the lock.
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(ctx)
}

// hashKey uses FNV-1a for even shard distribution.
func hashKey(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}

// SQLRunner wraps fn in a database transaction carried through the context;
// Postgres stores pick it up via From and join the same unit. The key is
// unused here: cross-transaction serialization comes from row locks and
// unique constraints in the schema, not from in-process mutexes.
type SQLRunner struct {
	db *sql.DB
}

func NewSQLRunner(db *sql.DB) *SQLRunner {
	return &SQLRunner{db: db}
}

func (r *SQLRunner) RunInTx(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "begin transaction")
	}

	if err := fn(WithTx(ctx, dbTx)); err != nil {
		if rollbackErr := dbTx.Rollback(); rollbackErr != nil && rollbackErr != sql.ErrTxDone {
			return dErrors.Wrap(rollbackErr, dErrors.CodeInternal, "rollback transaction")
		}
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "commit transaction")
	}
	return nil
}
