// Package telemetry optionally mirrors rtxlink transfer progress and CAT
// query results into Redis, grounded on the teacher's
// write-then-publish pipeline (pkg/redis.Client.WriteAndPublishString).
// It is entirely optional: when no Redis address is configured, every
// method is a no-op and the core never depends on Redis being reachable.
package telemetry

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Reporter mirrors rtxlink activity into Redis. The zero value is a valid
// no-op reporter.
type Reporter struct {
	client *redis.Client
	ctx    context.Context
	prefix string
}

// Connect dials addr and returns a Reporter keyed under
// "rtxlink:<device>". With an empty addr it returns a zero-value
// Reporter, which is a valid no-op.
func Connect(addr, password string, db int, device string) (*Reporter, error) {
	if addr == "" {
		return &Reporter{}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return &Reporter{client: client, ctx: ctx, prefix: "rtxlink:" + device}, nil
}

func (r *Reporter) enabled() bool { return r != nil && r.client != nil }

// Close releases the Redis connection, if any.
func (r *Reporter) Close() error {
	if !r.enabled() {
		return nil
	}
	return r.client.Close()
}

// ReportInfo records the radio's INFO reply.
func (r *Reporter) ReportInfo(name string) error {
	return r.writeAndPublish("info", name)
}

// ReportProgress records and publishes a backup/restore transfer's
// progress as "<done>/<total>".
func (r *Reporter) ReportProgress(op string, done, total int) error {
	return r.writeAndPublish(op, fmt.Sprintf("%d/%d", done, total))
}

func (r *Reporter) writeAndPublish(field, value string) error {
	if !r.enabled() {
		return nil
	}
	pipe := r.client.Pipeline()
	pipe.HSet(r.ctx, r.prefix, field, value)
	pipe.Publish(r.ctx, r.prefix, fmt.Sprintf("%s:%s", field, value))
	_, err := pipe.Exec(r.ctx)
	return err
}
