package ratelimit

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const (
	keySerialLock = "billdesk:serial:lock:%s"

	lockPollInterval = 25 * time.Millisecond
	lockReleaseWait  = time.Second
)

// The lock key is deleted only while it still carries the holder's token, so
// a holder whose TTL expired cannot release a lock taken by another instance.
var releaseSerialLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// serialLock identifies one attempt at the allocation lock of a workspace.
type serialLock struct {
	key   string
	token string
}

func newSerialLock(workspaceID snowflake.ID) serialLock {
	return serialLock{
		key:   workspaceKey(keySerialLock, workspaceID),
		token: uuid.NewString(),
	}
}

// LockSerial blocks until the serial allocation lock of the workspace is
// held, the wait expires or ctx ends. The returned func releases the lock.
func (l *WriteLimiter) LockSerial(ctx context.Context, workspaceID snowflake.ID) (func(), error) {
	if !l.Enabled() {
		return func() {}, nil
	}

	lock := newSerialLock(workspaceID)
	deadline := time.Now().Add(l.lockWait)
	for {
		acquired, err := l.client.SetNX(ctx, lock.key, lock.token, l.lockTTL).Result()
		if err != nil {
			return nil, err
		}
		if acquired {
			return func() { l.releaseSerial(ctx, lock) }, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrSerialLockBusy
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}
}

// releaseSerial runs even when the request context is already cancelled.
func (l *WriteLimiter) releaseSerial(ctx context.Context, lock serialLock) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lockReleaseWait)
	defer cancel()
	_ = releaseSerialLockScript.Run(releaseCtx, l.client, []string{lock.key}, lock.token).Err()
}
