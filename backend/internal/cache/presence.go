package cache

import (
	"context"
	"strconv"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// PresenceCache 记录“哪些连接最近还活着”，给 /canvas/rooms 监控接口用。
// 纯 TTL 心跳状态，不落画布日志；房间内的权威成员表仍在 board.Room 里。
type PresenceCache interface {
	// AddMember 登记成员并刷新 TTL（心跳续期也调它）
	AddMember(ctx context.Context, roomID, connID, name string, ttl time.Duration) error
	RemoveMember(ctx context.Context, roomID, connID string) error
	AliveMembers(ctx context.Context, roomID string) ([]PresenceMember, error)
	Rooms(ctx context.Context) ([]string, error)
}

type PresenceMember struct {
	ConnID string `json:"connId"`
	Name   string `json:"name"`
}

// 基于 redis 的实现
type redisPresence struct {
	rdb redis.UniversalClient
}

func NewRedisPresence(rdb redis.UniversalClient) PresenceCache {
	return &redisPresence{rdb: rdb}
}

func (p *redisPresence) AddMember(ctx context.Context, roomID, connID, name string, ttl time.Duration) error {
	tx := p.rdb.TxPipeline()
	// ZSET score 使用 expireAt（Unix 秒），表达“逻辑 TTL”
	expireAt := time.Now().Add(ttl).Unix()
	tx.ZAdd(ctx, roomKey(roomID), redis.Z{Score: float64(expireAt), Member: connID})
	tx.HSet(ctx, namesKey(roomID), connID, name)
	_, err := tx.Exec(ctx)
	return err
}

func (p *redisPresence) RemoveMember(ctx context.Context, roomID, connID string) error {
	tx := p.rdb.TxPipeline()
	tx.ZRem(ctx, roomKey(roomID), connID)
	tx.HDel(ctx, namesKey(roomID), connID)
	_, err := tx.Exec(ctx)
	return err
}

func (p *redisPresence) Rooms(ctx context.Context) ([]string, error) {
	var rooms []string
	// namesKey 前缀是 presence:room:names:，不会被这个模式扫到
	iter := p.rdb.Scan(ctx, 0, "presence:room:{roomID:*}", 0).Iterator()
	for iter.Next(ctx) {
		roomID := strings.TrimSuffix(strings.TrimPrefix(iter.Val(), "presence:room:{roomID:"), "}")
		if roomID != "" {
			rooms = append(rooms, roomID)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return rooms, nil
}

func (p *redisPresence) AliveMembers(ctx context.Context, roomID string) ([]PresenceMember, error) {
	// step1: 清掉过期成员（score=expireAt，<= now 视为过期）
	now := time.Now().Unix()
	luaScript := `
	-- KEYS[1] = roomKey(roomID)
	-- KEYS[2] = namesKey(roomID)
	-- ARGV[1] = now (unix seconds)

	local expired = redis.call("ZRANGEBYSCORE", KEYS[1], "-inf", ARGV[1])
	if #expired > 0 then
		redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", ARGV[1])
		redis.call("HDEL", KEYS[2], unpack(expired))
	end
	return #expired
	`
	script := redis.NewScript(luaScript)
	if _, err := script.Run(ctx, p.rdb, []string{roomKey(roomID), namesKey(roomID)}, now).Int(); err != nil && err != redis.Nil {
		return nil, err
	}

	// step2: 查在线成员
	aliveIDs, err := p.rdb.ZRangeByScore(ctx, roomKey(roomID), &redis.ZRangeBy{
		Min: "(" + strconv.FormatInt(now, 10), // 严格大于 now
		Max: "+inf",
	}).Result()
	if err != nil && err != redis.Nil {
		return nil, err
	}
	if len(aliveIDs) == 0 {
		return nil, nil
	}

	// step3: 批量取昵称
	names, err := p.rdb.HMGet(ctx, namesKey(roomID), aliveIDs...).Result()
	if err != nil && err != redis.Nil {
		return nil, err
	}
	members := make([]PresenceMember, 0, len(aliveIDs))
	for i, id := range aliveIDs {
		name := ""
		if i < len(names) && names[i] != nil {
			name, _ = names[i].(string)
		}
		members = append(members, PresenceMember{ConnID: id, Name: name})
	}
	return members, nil
}
