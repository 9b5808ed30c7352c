package assetlog

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisOperationTimeout bounds every command the backend issues.
const redisOperationTimeout = 5 * time.Second

// RedisBackend persists assets in Redis: one hash per asset plus
// per-document id lists that preserve upload order.
type RedisBackend struct {
	client  *redis.Client
	timeout time.Duration
}

// NewRedisBackend wraps an open client.
func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client, timeout: redisOperationTimeout}
}

// OpenRedis connects to a redis:// or rediss:// DSN and verifies the
// server answers.
func OpenRedis(ctx context.Context, dsn string) (*RedisBackend, error) {
	opts, err := redis.ParseURL(dsn)
	if err != nil {
		return nil, fmt.Errorf("open asset log: %w", err)
	}
	b := NewRedisBackend(redis.NewClient(opts))

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	if err := b.client.Ping(ctx).Err(); err != nil {
		_ = b.client.Close()
		return nil, fmt.Errorf("ping asset log: %w", err)
	}
	return b, nil
}

// Record stores the asset hash and, for a first sighting of the id,
// appends it to the document and global order lists. Re-records update
// the hash in place so list order is stable.
func (b *RedisBackend) Record(ctx context.Context, a Asset) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	if a.UploadedAt.IsZero() {
		a.UploadedAt = time.Now().UTC()
	}

	seen, err := b.client.Exists(ctx, assetKey(a.ID)).Result()
	if err != nil {
		return fmt.Errorf("record asset: %w", err)
	}

	pipe := b.client.Pipeline()
	pipe.HSet(ctx, assetKey(a.ID), map[string]any{
		"document_id": a.DocumentID,
		"name":        a.Name,
		"mime":        a.MIME,
		"size":        a.Size,
		"url":         a.URL,
		"uploaded_at": a.UploadedAt.Format(time.RFC3339Nano),
	})
	if seen == 0 {
		pipe.RPush(ctx, documentKey(a.DocumentID), a.ID)
		pipe.RPush(ctx, indexKey, a.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record asset: %w", err)
	}
	return nil
}

// List returns the assets recorded for a document in upload order. An
// empty documentID lists every asset.
func (b *RedisBackend) List(ctx context.Context, documentID string) ([]Asset, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	key := indexKey
	if documentID != "" {
		key = documentKey(documentID)
	}
	ids, err := b.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.MapStringStringCmd, 0, len(ids))
	pipe := b.client.Pipeline()
	for _, id := range ids {
		cmds = append(cmds, pipe.HGetAll(ctx, assetKey(id)))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}

	out := make([]Asset, 0, len(ids))
	for i, cmd := range cmds {
		fields, err := cmd.Result()
		if err != nil || len(fields) == 0 {
			continue
		}
		out = append(out, assetFromFields(ids[i], fields))
	}
	return out, nil
}

// Close closes the underlying client.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}

// indexKey orders every recorded asset id.
const indexKey = "assetlog:assets"

func assetKey(id string) string {
	return fmt.Sprintf("assetlog:asset:%s", id)
}

func documentKey(documentID string) string {
	return fmt.Sprintf("assetlog:document:%s:assets", documentID)
}

// assetFromFields rebuilds an asset from its hash fields. Unparseable
// numerics and timestamps degrade to zero values rather than failing
// the whole listing.
func assetFromFields(id string, fields map[string]string) Asset {
	a := Asset{
		ID:         id,
		DocumentID: fields["document_id"],
		Name:       fields["name"],
		MIME:       fields["mime"],
		URL:        fields["url"],
	}
	if raw := fields["size"]; raw != "" {
		a.Size, _ = strconv.ParseInt(raw, 10, 64)
	}
	if raw := fields["uploaded_at"]; raw != "" {
		a.UploadedAt, _ = time.Parse(time.RFC3339Nano, raw)
	}
	return a
}
