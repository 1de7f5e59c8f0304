package threads

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yswa-var/DOCX-agent/internal/errors"
)

const (
	redisPrefix     = "docxagent:"
	redisThreadsSet = redisPrefix + "threads"
	redisMaxRetries = 8
)

// RedisStore keeps threads in Redis so several agent processes can share
// them. Each thread is a hash; the pending request lives under its own key
// and is claimed with SETNX.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to the Redis server at url.
func NewRedisStore(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func threadKey(id string) string  { return redisPrefix + "thread:" + id }
func pendingKey(id string) string { return redisPrefix + "pending:" + id }
func identityKey(id Identity) string {
	return redisPrefix + "identity:" + id.Platform + ":" + id.UserID
}

func (s *RedisStore) GetOrCreate(ctx context.Context, id Identity) (*Thread, bool, error) {
	if err := validateIdentity(id); err != nil {
		return nil, false, err
	}

	candidate := NewID()
	claimed, err := s.client.SetNX(ctx, identityKey(id), candidate, 0).Result()
	if err != nil {
		return nil, false, redisErr("claim identity", err)
	}
	if !claimed {
		existing, err := s.client.Get(ctx, identityKey(id)).Result()
		if err != nil {
			return nil, false, redisErr("read identity", err)
		}
		// The creator may not have written the hash yet; wait briefly.
		for i := 0; i < redisMaxRetries; i++ {
			th, err := s.Get(ctx, existing)
			if err == nil || !errors.Is(err, errors.ErrNotFound) {
				return th, false, err
			}
			select {
			case <-ctx.Done():
				return nil, false, errors.NewCancelled("get thread")
			case <-time.After(10 * time.Millisecond):
			}
		}
		return nil, false, errors.NewNotFound("thread", existing)
	}

	now := time.Now().Unix()
	th := &Thread{ThreadID: candidate, Identity: id, CreatedAt: now, LastActivityAt: now}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, threadKey(th.ThreadID),
			"platform", id.Platform,
			"user_id", id.UserID,
			"created_at", now,
			"last_activity_at", now)
		p.SAdd(ctx, redisThreadsSet, th.ThreadID)
		return nil
	})
	if err != nil {
		s.client.Del(context.WithoutCancel(ctx), identityKey(id))
		return nil, false, redisErr("create thread", err)
	}
	return th, true, nil
}

func (s *RedisStore) Get(ctx context.Context, threadID string) (*Thread, error) {
	fields, err := s.client.HGetAll(ctx, threadKey(threadID)).Result()
	if err != nil {
		return nil, redisErr("read thread", err)
	}
	if len(fields) == 0 {
		return nil, errors.NewNotFound("thread", threadID)
	}
	th := &Thread{
		ThreadID: threadID,
		Identity: Identity{Platform: fields["platform"], UserID: fields["user_id"]},
	}
	th.CreatedAt, _ = strconv.ParseInt(fields["created_at"], 10, 64)
	th.LastActivityAt, _ = strconv.ParseInt(fields["last_activity_at"], 10, 64)

	data, err := s.client.Get(ctx, pendingKey(threadID)).Result()
	switch {
	case stderrors.Is(err, redis.Nil):
	case err != nil:
		return nil, redisErr("read pending", err)
	default:
		req, err := decodeRequest(data)
		if err != nil {
			return nil, err
		}
		th.Pending = req
	}
	return th, nil
}

func (s *RedisStore) SetPending(ctx context.Context, threadID string, req *ApprovalRequest) error {
	exists, err := s.client.Exists(ctx, threadKey(threadID)).Result()
	if err != nil {
		return redisErr("read thread", err)
	}
	if exists == 0 {
		return errors.NewNotFound("thread", threadID)
	}

	data, err := json.Marshal(req)
	if err != nil {
		return errors.NewInternal(err)
	}
	ok, err := s.client.SetNX(ctx, pendingKey(threadID), data, 0).Result()
	if err != nil {
		return redisErr("set pending", err)
	}
	if !ok {
		current := ""
		if raw, err := s.client.Get(ctx, pendingKey(threadID)).Result(); err == nil {
			if prev, err := decodeRequest(raw); err == nil {
				current = prev.RequestID
			}
		}
		return errors.NewPendingApprovalConflict(threadID, current)
	}
	s.client.HSet(ctx, threadKey(threadID), "last_activity_at", time.Now().Unix())
	return nil
}

func (s *RedisStore) ClearPending(ctx context.Context, threadID, requestID string) (*ApprovalRequest, error) {
	key := pendingKey(threadID)
	var cleared *ApprovalRequest

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Result()
		if stderrors.Is(err, redis.Nil) {
			return errors.NewNoPendingApproval(threadID)
		}
		if err != nil {
			return err
		}
		req, err := decodeRequest(raw)
		if err != nil {
			return err
		}
		if req.RequestID != requestID {
			return errors.NewNoPendingApproval(threadID)
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Del(ctx, key)
			p.HSet(ctx, threadKey(threadID), "last_activity_at", time.Now().Unix())
			return nil
		})
		if err == nil {
			cleared = req
		}
		return err
	}

	for i := 0; i < redisMaxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return cleared, nil
		}
		if stderrors.Is(err, redis.TxFailedErr) {
			continue
		}
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, redisErr("clear pending", err)
	}
	// Every attempt raced another resolver; that resolver consumed it.
	return nil, errors.NewNoPendingApproval(threadID)
}

func (s *RedisStore) Touch(ctx context.Context, threadID string, at time.Time) error {
	exists, err := s.client.Exists(ctx, threadKey(threadID)).Result()
	if err != nil {
		return redisErr("read thread", err)
	}
	if exists == 0 {
		return errors.NewNotFound("thread", threadID)
	}
	if err := s.client.HSet(ctx, threadKey(threadID), "last_activity_at", at.Unix()).Err(); err != nil {
		return redisErr("touch thread", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, threadID string) error {
	th, err := s.Get(ctx, threadID)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, threadKey(threadID), pendingKey(threadID), identityKey(th.Identity))
		p.SRem(ctx, redisThreadsSet, threadID)
		return nil
	})
	if err != nil {
		return redisErr("delete thread", err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]*Thread, error) {
	ids, err := s.client.SMembers(ctx, redisThreadsSet).Result()
	if err != nil {
		return nil, redisErr("list threads", err)
	}
	out := make([]*Thread, 0, len(ids))
	for _, id := range ids {
		th, err := s.Get(ctx, id)
		if errors.Is(err, errors.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, th)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastActivityAt != out[j].LastActivityAt {
			return out[i].LastActivityAt > out[j].LastActivityAt
		}
		return out[i].ThreadID < out[j].ThreadID
	})
	return out, nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func redisErr(op string, err error) error {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewCancelled(op)
	}
	return errors.NewInternal(fmt.Errorf("%s: %w", op, err))
}
