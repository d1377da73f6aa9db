package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/briansimoni/weewoo.study-sub000/internal/logging"
	apperrors "github.com/briansimoni/weewoo.study-sub000/internal/pkg/errors"
)

const (
	scanBatchSize = 500
	mgetBatchSize = 200
)

// errPrecondition - внутренний сигнал о несовпадении версии внутри WATCH
var errPrecondition = errors.New("precondition failed")

// Entry - запись хранилища вместе с токеном версии
type Entry struct {
	Key     string
	Value   []byte
	Version string
}

// Check - предусловие коммита: ключ должен иметь версию Version.
// Пустая версия означает "ключ отсутствует".
type Check struct {
	Key     string
	Version string
}

// MutationOp - тип записи в пакете коммита
type MutationOp int

const (
	OpSet MutationOp = iota
	OpDelete
)

// Mutation - одна запись (set/delete) атомарного пакета
type Mutation struct {
	Op    MutationOp
	Key   string
	Value []byte
	// TTL - необязательный срок жизни ключа в Redis. Это только подсказка для очистки:
	// логическое истечение проверяется владельцем записи при каждом чтении.
	TTL time.Duration
}

// SetMutation создает запись set
func SetMutation(key string, value []byte, ttl time.Duration) Mutation {
	return Mutation{Op: OpSet, Key: key, Value: value, TTL: ttl}
}

// DeleteMutation создает запись delete
func DeleteMutation(key string) Mutation {
	return Mutation{Op: OpDelete, Key: key}
}

// ScanOptions управляет порядком и размером выборки по префиксу
type ScanOptions struct {
	Reverse bool
	Limit   int
}

// KVStore - версионируемое хранилище записей поверх Redis.
// Единственный примитив, позволяющий менять несколько ключей вместе, - Commit.
type KVStore struct {
	client    redis.UniversalClient
	namespace string
	logger    *zap.Logger
}

// NewKVStore создает хранилище поверх общего клиента Redis
func NewKVStore(client redis.UniversalClient, namespace string, logger *zap.Logger) (*KVStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client cannot be nil for KVStore")
	}
	return &KVStore{
		client:    client,
		namespace: strings.TrimSuffix(namespace, ":"),
		logger:    logging.OrNop(logger),
	}, nil
}

// Version вычисляет токен версии по сохраненным байтам
func Version(raw []byte) string {
	return strconv.FormatUint(xxhash.Sum64(raw), 16)
}

func (s *KVStore) key(k string) string {
	if s.namespace == "" {
		return k
	}
	return s.namespace + ":" + k
}

func (s *KVStore) logicalKey(k string) string {
	if s.namespace == "" {
		return k
	}
	return strings.TrimPrefix(k, s.namespace+":")
}

func engineError(op string, err error) error {
	return fmt.Errorf("kv %s: %w: %w", op, apperrors.ErrUnavailable, err)
}

// Get возвращает запись по ключу или ErrNotFound
func (s *KVStore) Get(ctx context.Context, key string) (Entry, error) {
	raw, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Entry{}, fmt.Errorf("kv get %s: %w", key, apperrors.ErrNotFound)
		}
		return Entry{}, engineError("get", err)
	}
	return Entry{Key: key, Value: raw, Version: Version(raw)}, nil
}

// Set записывает значение без предусловий
func (s *KVStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return engineError("set", err)
	}
	return nil
}

// Delete удаляет ключ (отсутствие ключа не ошибка)
func (s *KVStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return engineError("delete", err)
	}
	return nil
}

// scanScript собирает ключи по шаблону и читает их значения за один вызов.
// Скрипт выполняется атомарно, поэтому результат - снимок на момент вызова:
// коммит, переносящий запись между ключами, виден либо целиком, либо никак.
// Возвращает плоский массив {key1, value1, key2, value2, ...}.
var scanScript = redis.NewScript(`
local cursor = "0"
local seen = {}
local keys = {}
repeat
	local res = redis.call("SCAN", cursor, "MATCH", ARGV[1], "COUNT", ARGV[2])
	cursor = res[1]
	for _, k in ipairs(res[2]) do
		if not seen[k] then
			seen[k] = true
			keys[#keys + 1] = k
		end
	end
until cursor == "0"

local batch = tonumber(ARGV[3])
local out = {}
for i = 1, #keys, batch do
	local j = math.min(i + batch - 1, #keys)
	local values = redis.call("MGET", unpack(keys, i, j))
	for n = 1, #values do
		if values[n] then
			out[#out + 1] = keys[i + n - 1]
			out[#out + 1] = values[n]
		end
	end
end
return out
`)

// Scan возвращает записи с заданным префиксом, упорядоченные по ключу.
// Листинг и чтение значений выполняются одним скриптом, так что выборка
// отражает состояние хранилища на момент начала.
// Скрипт не объявляет ключи, поэтому в Redis Cluster не поддерживается.
func (s *KVStore) Scan(ctx context.Context, prefix string, opts ScanOptions) ([]Entry, error) {
	pattern := escapeGlob(s.key(prefix)) + "*"

	reply, err := scanScript.Run(ctx, s.client, nil, pattern, scanBatchSize, mgetBatchSize).Slice()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []Entry{}, nil
		}
		return nil, engineError("scan", err)
	}
	if len(reply)%2 != 0 {
		return nil, engineError("scan", fmt.Errorf("odd reply length %d", len(reply)))
	}

	entries := make([]Entry, 0, len(reply)/2)
	for i := 0; i < len(reply); i += 2 {
		key, ok := reply[i].(string)
		if !ok {
			return nil, engineError("scan", fmt.Errorf("unexpected key type %T", reply[i]))
		}
		value, ok := reply[i+1].(string)
		if !ok {
			return nil, engineError("scan", fmt.Errorf("unexpected value type %T", reply[i+1]))
		}
		raw := []byte(value)
		entries = append(entries, Entry{Key: s.logicalKey(key), Value: raw, Version: Version(raw)})
	}

	sort.Slice(entries, func(i, j int) bool {
		if opts.Reverse {
			return entries[i].Key > entries[j].Key
		}
		return entries[i].Key < entries[j].Key
	})
	if opts.Limit > 0 && len(entries) > opts.Limit {
		entries = entries[:opts.Limit]
	}
	return entries, nil
}

// Commit атомарно применяет пакет записей, если все предусловия выполнены.
// При несовпадении любой версии (или при изменении наблюдаемого ключа до EXEC)
// возвращается ErrConflict и ни одна запись не применяется.
func (s *KVStore) Commit(ctx context.Context, checks []Check, mutations []Mutation) error {
	if len(checks) == 0 && len(mutations) == 0 {
		return nil
	}

	watched := make([]string, 0, len(checks))
	for _, c := range checks {
		watched = append(watched, s.key(c.Key))
	}

	txf := func(tx *redis.Tx) error {
		for _, c := range checks {
			current := ""
			raw, err := tx.Get(ctx, s.key(c.Key)).Bytes()
			if err == nil {
				current = Version(raw)
			} else if !errors.Is(err, redis.Nil) {
				return err
			}
			if current != c.Version {
				s.logger.Debug("commit precondition failed",
					zap.String("key", c.Key),
					zap.String("expected", c.Version),
					zap.String("actual", current))
				return errPrecondition
			}
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, m := range mutations {
				switch m.Op {
				case OpSet:
					ttl := m.TTL
					if ttl < 0 {
						ttl = 0
					}
					pipe.Set(ctx, s.key(m.Key), m.Value, ttl)
				case OpDelete:
					pipe.Del(ctx, s.key(m.Key))
				default:
					return fmt.Errorf("unknown mutation op %d", m.Op)
				}
			}
			return nil
		})
		return err
	}

	err := s.client.Watch(ctx, txf, watched...)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errPrecondition), errors.Is(err, redis.TxFailedErr):
		return fmt.Errorf("kv commit: %w", apperrors.ErrConflict)
	default:
		return engineError("commit", err)
	}
}

// RetryOnConflict повторяет цикл чтение-изменение-коммит при ErrConflict,
// не более attempts раз. Остальные ошибки возвращаются сразу.
func RetryOnConflict(ctx context.Context, attempts int, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		err = fn(ctx)
		if !errors.Is(err, apperrors.ErrConflict) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	}
	return err
}

// getJSON читает запись и декодирует её в dest, возвращая версию
func (s *KVStore) getJSON(ctx context.Context, key string, dest interface{}) (string, error) {
	entry, err := s.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if err := json.Unmarshal(entry.Value, dest); err != nil {
		return "", fmt.Errorf("kv decode %s: %w", key, err)
	}
	return entry.Version, nil
}

// versionOrAbsent возвращает версию ключа или "" если ключа нет
func (s *KVStore) versionOrAbsent(ctx context.Context, key string) (string, error) {
	entry, err := s.Get(ctx, key)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return entry.Version, nil
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
