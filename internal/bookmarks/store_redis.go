package bookmarks

import (
	"context"
	"errors"
	"iter"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "bookmarks:"

// toggleScript removes the member if present, otherwise adds it with the
// given score. Returns 1 when the pair ends up saved.
var toggleScript = redis.NewScript(`
if redis.call("ZSCORE", KEYS[1], ARGV[1]) then
  redis.call("ZREM", KEYS[1], ARGV[1])
  return 0
end
redis.call("ZADD", KEYS[1], ARGV[2], ARGV[1])
return 1
`)

// RedisStore keeps one sorted set per profile: member is the opportunity id,
// score the save time in Unix milliseconds.
type RedisStore struct {
	Client redis.UniversalClient
	Prefix string
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{Client: client, Prefix: defaultKeyPrefix}
}

func (r *RedisStore) key(profileID string) string {
	prefix := r.Prefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return prefix + profileID
}

func (r *RedisStore) Save(ctx context.Context, b Bookmark) (bool, error) {
	n, err := r.Client.ZAddNX(ctx, r.key(b.ProfileID), redis.Z{
		Score:  float64(b.SavedAt.UnixMilli()),
		Member: b.OpportunityID,
	}).Result()
	return n > 0, err
}

func (r *RedisStore) Remove(ctx context.Context, profileID, opportunityID string) (bool, error) {
	n, err := r.Client.ZRem(ctx, r.key(profileID), opportunityID).Result()
	return n > 0, err
}

func (r *RedisStore) Toggle(ctx context.Context, b Bookmark) (bool, error) {
	res, err := toggleScript.Run(ctx, r.Client, []string{r.key(b.ProfileID)},
		b.OpportunityID, b.SavedAt.UnixMilli()).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

func (r *RedisStore) Exists(ctx context.Context, profileID, opportunityID string) (bool, error) {
	err := r.Client.ZScore(ctx, r.key(profileID), opportunityID).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	return err == nil, err
}

func (r *RedisStore) Count(ctx context.Context, profileID string) (int, error) {
	n, err := r.Client.ZCard(ctx, r.key(profileID)).Result()
	return int(n), err
}

// List reads the whole set on first iteration so equal scores can be ordered
// by opportunity id.
func (r *RedisStore) List(ctx context.Context, profileID string) iter.Seq2[Bookmark, error] {
	return func(yield func(Bookmark, error) bool) {
		zs, err := r.Client.ZRangeWithScores(ctx, r.key(profileID), 0, -1).Result()
		if err != nil {
			yield(Bookmark{}, err)
			return
		}
		out := make([]Bookmark, 0, len(zs))
		for _, z := range zs {
			member, _ := z.Member.(string)
			out = append(out, Bookmark{
				ProfileID:     profileID,
				OpportunityID: member,
				SavedAt:       time.UnixMilli(int64(z.Score)).UTC(),
			})
		}
		slices.SortFunc(out, compareNewestFirst)
		for _, b := range out {
			if !yield(b, nil) {
				return
			}
		}
	}
}
