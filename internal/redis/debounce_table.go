package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/emilythestrangee/git-forum/backend/internal/trending"
)

const defaultDebounceKey = "forum:trending:due"

// claimDueScript pops up to ARGV[2] members whose deadline (score, unix ms)
// is <= ARGV[1]. Running range + remove in one script makes the claim atomic
// across workers.
var claimDueScript = goredis.NewScript(`
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
if #ids > 0 then
  redis.call('ZREM', KEYS[1], unpack(ids))
end
return ids
`)

// DebounceTable keeps per-post recompute deadlines in a sorted set shared by
// every worker process. ZADD overwrites the score of an existing member, so a
// new trigger resets the window.
var _ trending.DebounceTable = (*DebounceTable)(nil)

type DebounceTable struct {
	rdb *goredis.Client
	key string
}

func NewDebounceTable(rdb *goredis.Client) *DebounceTable {
	return &DebounceTable{rdb: rdb, key: defaultDebounceKey}
}

// WithKey returns a copy of the table stored under another key.
func (t *DebounceTable) WithKey(key string) *DebounceTable {
	return &DebounceTable{rdb: t.rdb, key: key}
}

func (t *DebounceTable) Touch(ctx context.Context, postID int, due time.Time) error {
	err := t.rdb.ZAdd(ctx, t.key, goredis.Z{
		Score:  float64(due.UnixMilli()),
		Member: strconv.Itoa(postID),
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to touch debounce entry: %w", err)
	}
	return nil
}

func (t *DebounceTable) ClaimDue(ctx context.Context, now time.Time, limit int) ([]int, error) {
	if limit <= 0 {
		limit = 1000
	}
	members, err := claimDueScript.Run(ctx, t.rdb, []string{t.key},
		strconv.FormatInt(now.UnixMilli(), 10),
		strconv.Itoa(limit),
	).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("claim due script failed: %w", err)
	}

	ids := make([]int, 0, len(members))
	for _, m := range members {
		id, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (t *DebounceTable) Pending(ctx context.Context) (int, error) {
	n, err := t.rdb.ZCard(ctx, t.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count debounce entries: %w", err)
	}
	return int(n), nil
}
