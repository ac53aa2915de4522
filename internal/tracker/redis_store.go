package tracker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig はRedis接続設定。
type RedisConfig struct {
	Address   string `mapstructure:"address" toml:"address"`
	Password  string `mapstructure:"password" toml:"password"`
	DB        int    `mapstructure:"db" toml:"db"`
	KeyPrefix string `mapstructure:"key_prefix" toml:"key_prefix"`
}

// RedisStore は再起動をまたいで状態を保持するRedis実装。
//
// キー構成:
//
//	{prefix}:sessions                      SET<platform:entity>  - 保存済みキーの索引
//	{prefix}:session:{platform}:{entity}   HASH                  - SessionState
//	  - live: "true" | "false"
//	  - started_at: unix ミリ秒
//	  - viewer_count, message_chat, message_id, message_photo, slug, title, display_name
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore はRedisに接続しRedisStoreを作成する。
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("Redis接続に失敗: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "livenotifier"
	}

	return &RedisStore{client: client, prefix: prefix}, nil
}

func (s *RedisStore) indexKey() string {
	return s.prefix + ":sessions"
}

func (s *RedisStore) sessionKey(key Key) string {
	return fmt.Sprintf("%s:session:%s", s.prefix, key)
}

func (s *RedisStore) Get(ctx context.Context, key Key) (SessionState, bool, error) {
	fields, err := s.client.HGetAll(ctx, s.sessionKey(key)).Result()
	if err != nil {
		return SessionState{}, false, err
	}
	if len(fields) == 0 {
		return SessionState{}, false, nil
	}
	return decodeState(fields), true, nil
}

func (s *RedisStore) Put(ctx context.Context, key Key, state SessionState) error {
	hashKey := s.sessionKey(key)

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, hashKey)
	pipe.HSet(ctx, hashKey, encodeState(state))
	pipe.SAdd(ctx, s.indexKey(), key.String())
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) List(ctx context.Context) ([]Entry, error) {
	members, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(members))
	for _, m := range members {
		key, ok := ParseKey(m)
		if !ok {
			continue
		}
		st, found, err := s.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		entries = append(entries, Entry{Key: key, State: st})
	}

	sortEntries(entries)
	return entries, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func encodeState(st SessionState) map[string]interface{} {
	fields := map[string]interface{}{
		"live": strconv.FormatBool(st.Live),
	}
	if !st.StartedAt.IsZero() {
		fields["started_at"] = strconv.FormatInt(st.StartedAt.UnixMilli(), 10)
	}
	if st.ViewerCount != 0 {
		fields["viewer_count"] = strconv.Itoa(st.ViewerCount)
	}
	if !st.Message.IsZero() {
		fields["message_chat"] = st.Message.ChatID
		fields["message_id"] = strconv.Itoa(st.Message.MessageID)
		fields["message_photo"] = strconv.FormatBool(st.Message.Photo)
	}
	if st.Slug != "" {
		fields["slug"] = st.Slug
	}
	if st.Title != "" {
		fields["title"] = st.Title
	}
	if st.DisplayName != "" {
		fields["display_name"] = st.DisplayName
	}
	return fields
}

func decodeState(fields map[string]string) SessionState {
	st := SessionState{
		Live:        fields["live"] == "true",
		Slug:        fields["slug"],
		Title:       fields["title"],
		DisplayName: fields["display_name"],
	}
	if ms, err := strconv.ParseInt(fields["started_at"], 10, 64); err == nil {
		st.StartedAt = time.UnixMilli(ms).UTC()
	}
	if n, err := strconv.Atoi(fields["viewer_count"]); err == nil {
		st.ViewerCount = n
	}
	if id, err := strconv.Atoi(fields["message_id"]); err == nil {
		st.Message = MessageRef{
			ChatID:    fields["message_chat"],
			MessageID: id,
			Photo:     fields["message_photo"] == "true",
		}
	}
	return st
}
