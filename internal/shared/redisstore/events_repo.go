package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"ecommerce-orders/internal/domain/events"
	"ecommerce-orders/internal/ports"
)

// EventsRepo is the append-only event store on Redis.
//
// Each record lives at "event:{pk}:{sk}" with an expiry, so the store stays
// time-bounded without any sweeper. A per-customer sorted set scored by
// created_at acts as the secondary index; members whose record already expired
// are pruned lazily on read.
type EventsRepo struct {
	client *redis.Client
	ttl    time.Duration
}

var _ ports.EventRepository = (*EventsRepo)(nil)

// NewEventsRepo constructs the repo with the record time-to-live.
func NewEventsRepo(client *redis.Client, ttl time.Duration) *EventsRepo {
	return &EventsRepo{client: client, ttl: ttl}
}

func recordKey(member string) string { return "event:" + member }

func indexKey(email string) string { return "events:customer:" + email }

// CreateEvent persists one record. The key is derived from the record's own
// (pk, sk), so redelivering the same message rewrites the same key instead of
// creating a second visible record.
func (repo *EventsRepo) CreateEvent(ctx context.Context, record *events.EventRecord) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal event record: %w", err)
	}

	expiry := time.Until(time.Unix(record.TTL, 0))
	if expiry <= 0 {
		// already past its ttl; nothing a consumer could ever read
		return nil
	}

	member := record.PK + ":" + record.SK

	pipe := repo.client.TxPipeline()
	pipe.Set(ctx, recordKey(member), body, expiry)
	pipe.ZAdd(ctx, indexKey(record.Email), redis.Z{Score: float64(record.CreatedAt), Member: member})
	// keep the index alive as long as its youngest record
	pipe.Expire(ctx, indexKey(record.Email), repo.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write event record: %w", err)
	}
	return nil
}

// EventsByEmail returns the customer's order-event records, oldest first.
func (repo *EventsRepo) EventsByEmail(ctx context.Context, email string) ([]events.EventRecord, error) {
	return repo.queryByPrefix(ctx, email, events.EventSortKeyPrefix)
}

// EventsByEmailAndType narrows EventsByEmail to one discriminator.
func (repo *EventsRepo) EventsByEmailAndType(ctx context.Context, email string, eventType events.EventType) ([]events.EventRecord, error) {
	return repo.queryByPrefix(ctx, email, string(eventType))
}

// queryByPrefix reads the customer index and keeps records whose sort key
// starts with prefix. Index members without a live record are dropped.
func (repo *EventsRepo) queryByPrefix(ctx context.Context, email string, prefix string) ([]events.EventRecord, error) {
	cutoff := time.Now().Add(-repo.ttl).UnixMilli()

	// prune index entries that cannot have a live record anymore
	_ = repo.client.ZRemRangeByScore(ctx, indexKey(email), "-inf", strconv.FormatInt(cutoff, 10)).Err()

	members, err := repo.client.ZRangeByScore(ctx, indexKey(email), &redis.ZRangeBy{
		Min: strconv.FormatInt(cutoff, 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("read customer index: %w", err)
	}

	// keep only members whose sort key carries the wanted prefix
	matching := members[:0]
	for _, member := range members {
		parts := strings.SplitN(member, ":", 2)
		if len(parts) == 2 && strings.HasPrefix(parts[1], prefix) {
			matching = append(matching, member)
		}
	}
	if len(matching) == 0 {
		return []events.EventRecord{}, nil
	}

	keys := make([]string, len(matching))
	for i, member := range matching {
		keys[i] = recordKey(member)
	}
	values, err := repo.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("read event records: %w", err)
	}

	out := make([]events.EventRecord, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// record expired between index read and fetch; drop the member too
			_ = repo.client.ZRem(ctx, indexKey(email), matching[i]).Err()
			continue
		}
		var record events.EventRecord
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			return nil, fmt.Errorf("decode event record %s: %w", keys[i], err)
		}
		out = append(out, record)
	}
	return out, nil
}
