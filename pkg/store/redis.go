package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisWriter keeps each document as a hash at "<collection>:<id>". Null
// fields are removed from the hash.
type RedisWriter struct {
	client *redis.Client
}

func NewRedisWriter(client *redis.Client) *RedisWriter {
	return &RedisWriter{client: client}
}

func (w *RedisWriter) Upsert(ctx context.Context, collection, id string, doc map[string]interface{}) error {
	key := RedisKey(collection, id)
	set, del := hashFields(doc)

	_, err := w.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(set) > 0 {
			pipe.HSet(ctx, key, set)
		}
		if len(del) > 0 {
			pipe.HDel(ctx, key, del...)
		}
		return nil
	})
	return err
}

func (w *RedisWriter) Close() error {
	return w.client.Close()
}

func RedisKey(collection, id string) string {
	return collection + ":" + id
}

func hashFields(doc map[string]interface{}) (map[string]interface{}, []string) {
	set := make(map[string]interface{}, len(doc))
	var del []string
	for field, value := range doc {
		switch v := value.(type) {
		case nil:
			del = append(del, field)
		case string:
			set[field] = v
		case time.Time:
			set[field] = v.UTC().Format(time.RFC3339Nano)
		default:
			set[field] = fmt.Sprint(v)
		}
	}
	sort.Strings(del)
	return set, del
}
