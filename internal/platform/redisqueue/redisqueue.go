// Package redisqueue implements the Queue & Lock Service: two durable FIFO
// queues (video jobs, email jobs) with companion dead-letter lists,
// per-item exclusive locks with heartbeat re-arming, and an attempts
// counter driving backoff. Grounded on the teacher's go-redis/v9 usage in
// internal/clients/redis (pub/sub there, lists and SET NX here).
package redisqueue

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/streemm-backend/internal/platform/apierr"
	"github.com/yungbote/streemm-backend/internal/platform/envutil"
	"github.com/yungbote/streemm-backend/internal/platform/logger"
)

// Kind names the two queues this service maintains, per spec.md §4.1.
type Kind string

const (
	KindVideo Kind = "video"
	KindEmail Kind = "email"
)

func (k Kind) queueKey() string { return "q:" + string(k) + "s" }
func (k Kind) dlqKey() string   { return "dlq:" + string(k) + "s" }

const dlqMaxLen = 10000

// Envelope is the JSON payload pushed onto q:videos / q:emails.
type Envelope struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// DLQEnvelope is an Envelope enriched with failure context when an item
// exhausts its retry budget.
type DLQEnvelope struct {
	Envelope
	Error    string    `json:"error"`
	Attempts int       `json:"attempts"`
	TS       time.Time `json:"ts"`
}

// Service wraps a redis client with the queue/lock/backoff primitives
// shared by the Job Worker and the Notifier Worker.
type Service struct {
	log     *logger.Logger
	rdb     *goredis.Client
	lockTTL time.Duration
	backoff []int
}

func New(log *logger.Logger, rdb *goredis.Client) *Service {
	ttlMS := envutil.GetEnvAsInt("WORKER_LOCK_TTL_MS", 15*60*1000)
	backoff := envutil.GetEnvAsCSVInts("WORKER_BACKOFF_SECONDS", []int{30, 120, 300})
	return &Service{
		log:     log.With("service", "redisqueue.Service"),
		rdb:     rdb,
		lockTTL: time.Duration(ttlMS) * time.Millisecond,
		backoff: backoff,
	}
}

// Dial builds the underlying go-redis client from REDIS_ADDR (and
// optional REDIS_PASSWORD/REDIS_DB), pinging once to fail fast on bad
// configuration, mirroring the teacher's sseBus dial-then-ping pattern.
func Dial(ctx context.Context, log *logger.Logger) (*goredis.Client, error) {
	addr := envutil.GetEnv("REDIS_ADDR", "")
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    envutil.GetEnv("REDIS_PASSWORD", ""),
		DB:          envutil.GetEnvAsInt("REDIS_DB", 0),
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// Enqueue pushes an envelope onto the tail of the kind's queue (consumers
// BRPOP from the opposite end, giving FIFO order).
func (s *Service) Enqueue(ctx context.Context, kind Kind, env Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return apierr.Terminal(fmt.Errorf("marshal envelope: %w", err))
	}
	if err := s.rdb.LPush(ctx, kind.queueKey(), raw).Err(); err != nil {
		return apierr.Transient(fmt.Errorf("lpush %s: %w", kind.queueKey(), err))
	}
	return nil
}

// Dequeue performs a blocking right-pop with a 5s timeout, returning
// (nil, nil) on timeout so the caller's consume loop can re-check its stop
// signal, per spec.md §4.1's "cancellation via a stop signal".
func (s *Service) Dequeue(ctx context.Context, kind Kind) (*Envelope, error) {
	res, err := s.rdb.BRPop(ctx, 5*time.Second, kind.queueKey()).Result()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, apierr.Transient(fmt.Errorf("brpop %s: %w", kind.queueKey(), err))
	}
	if len(res) != 2 {
		return nil, apierr.Terminal(fmt.Errorf("unexpected brpop reply shape"))
	}
	var env Envelope
	if err := json.Unmarshal([]byte(res[1]), &env); err != nil {
		return nil, apierr.Terminal(fmt.Errorf("unmarshal envelope: %w", err))
	}
	return &env, nil
}

// DeadLetter pushes env plus failure context onto the kind's DLQ, capping
// the list at dlqMaxLen entries via LTRIM.
func (s *Service) DeadLetter(ctx context.Context, kind Kind, env Envelope, cause error, attempts int) error {
	raw, err := json.Marshal(DLQEnvelope{
		Envelope: env,
		Error:    cause.Error(),
		Attempts: attempts,
		TS:       time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.LPush(ctx, kind.dlqKey(), raw)
	pipe.LTrim(ctx, kind.dlqKey(), 0, dlqMaxLen-1)
	_, err = pipe.Exec(ctx)
	return err
}

// Attempts increments and returns the retry counter for kind/id.
func (s *Service) Attempts(ctx context.Context, kind Kind, id string) (int, error) {
	n, err := s.rdb.Incr(ctx, "attempts:"+string(kind)+":"+id).Result()
	if err != nil {
		return 0, apierr.Transient(err)
	}
	return int(n), nil
}

// ResetAttempts clears the retry counter after a successful run.
func (s *Service) ResetAttempts(ctx context.Context, kind Kind, id string) error {
	return s.rdb.Del(ctx, "attempts:"+string(kind)+":"+id).Err()
}

// BackoffDelay returns the sleep duration for the given 1-indexed attempt
// count, clamping to the final entry once attempts exceeds the array —
// callers compare attempts against len(backoff) themselves to decide
// retry vs DLQ.
func (s *Service) BackoffDelay(attempts int) time.Duration {
	if attempts <= 0 {
		attempts = 1
	}
	idx := attempts - 1
	if idx >= len(s.backoff) {
		idx = len(s.backoff) - 1
	}
	return time.Duration(s.backoff[idx]) * time.Second
}

// ExceedsBudget reports whether attempts has exhausted the backoff array,
// per spec.md §4.1 ("When the counter exceeds the array length, push to
// the DLQ").
func (s *Service) ExceedsBudget(attempts int) bool {
	return attempts > len(s.backoff)
}

func newLockToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func lockKey(kind Kind, id string) string {
	return "lock:" + string(kind) + ":" + id
}

const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`

var releaseLua = goredis.NewScript(releaseScript)

const reacquireScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
else
	return 0
end
`

var reacquireLua = goredis.NewScript(reacquireScript)

// Lock is a held per-item mutex. Release and the heartbeat loop both
// verify ownership via the stored token before acting, so a lock whose
// TTL already expired and was reacquired by another worker is never
// clobbered.
type Lock struct {
	kind  Kind
	id    string
	token string
	ttl   time.Duration
	rdb   *goredis.Client
	log   *logger.Logger
}

// TryAcquire attempts lock:<kind>:<id> with SET NX PX. A miss is not an
// error — per spec.md §4.1 the caller logs lock_skip and returns.
func (s *Service) TryAcquire(ctx context.Context, kind Kind, id string) (*Lock, bool, error) {
	token := newLockToken()
	ok, err := s.rdb.SetNX(ctx, lockKey(kind, id), token, s.lockTTL).Result()
	if err != nil {
		return nil, false, apierr.Transient(fmt.Errorf("set nx lock: %w", err))
	}
	if !ok {
		return nil, false, nil
	}
	return &Lock{kind: kind, id: id, token: token, ttl: s.lockTTL, rdb: s.rdb, log: s.log}, true, nil
}

// Release performs a compare-and-delete via a Lua script so only the
// owning holder can release.
func (l *Lock) Release(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return releaseLua.Run(ctx, l.rdb, []string{lockKey(l.kind, l.id)}, l.token).Err()
}

// Heartbeat blocks, re-arming the lock TTL at ttl/3 until ctx is
// cancelled or the lock is lost (ownership mismatch), matching spec.md
// §4.1's "heartbeat loop re-arms the TTL at ~TTL/3 seconds".
func (l *Lock) Heartbeat(ctx context.Context) {
	interval := l.ttl / 3
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	ttlMS := l.ttl.Milliseconds()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := reacquireLua.Run(ctx, l.rdb, []string{lockKey(l.kind, l.id)}, l.token, ttlMS).Int64()
			if err != nil {
				l.log.Warn("lock heartbeat error", "kind", l.kind, "id", l.id, "error", err)
				continue
			}
			if n == 0 {
				l.log.Warn("lock heartbeat lost ownership", "kind", l.kind, "id", l.id)
				return
			}
		}
	}
}
