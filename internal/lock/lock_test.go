package redlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func newTestLockClient(t *testing.T) (redis.UniversalClient, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("an error '%s' occurred when starting miniredis", err)
	}
	t.Cleanup(mr.Close)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()}), mr
}

func TestLockAndUnlock(t *testing.T) {
	client, mr := newTestLockClient(t)
	locker := NewLocker(client, "reconcile:hot", "holder-1")

	err := locker.Lock(context.Background(), time.Minute)
	assert.NoError(t, err)
	assert.True(t, mr.Exists("reconcile:hot"))

	err = locker.Unlock(context.Background())
	assert.NoError(t, err)
	assert.False(t, mr.Exists("reconcile:hot"))
}

func TestLockDoesNotWaitForHolder(t *testing.T) {
	client, _ := newTestLockClient(t)

	first := NewLocker(client, "reconcile:hot", "holder-1")
	assert.NoError(t, first.Lock(context.Background(), time.Minute))

	second := NewLocker(client, "reconcile:hot", "holder-2")
	err := second.Lock(context.Background(), time.Minute)
	assert.Error(t, err)
}

func TestUnlockRefusesNonHolder(t *testing.T) {
	client, mr := newTestLockClient(t)

	holder := NewLocker(client, "reconcile:warm", "holder-1")
	assert.NoError(t, holder.Lock(context.Background(), time.Minute))

	intruder := NewLocker(client, "reconcile:warm", "holder-2")
	err := intruder.Unlock(context.Background())
	assert.Error(t, err)
	assert.True(t, mr.Exists("reconcile:warm"))
}

func TestExtendLock(t *testing.T) {
	client, mr := newTestLockClient(t)

	holder := NewLocker(client, "reconcile:cold", "holder-1")
	assert.NoError(t, holder.Lock(context.Background(), time.Minute))
	assert.NoError(t, holder.ExtendLock(context.Background(), 10*time.Minute))

	ttl := mr.TTL("reconcile:cold")
	assert.Greater(t, ttl, time.Minute)

	intruder := NewLocker(client, "reconcile:cold", "holder-2")
	assert.Error(t, intruder.ExtendLock(context.Background(), time.Hour))
}
