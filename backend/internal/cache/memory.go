package cache

import (
	"context"
	"sync"
	"time"
)

// memoryPresence：没配 Redis 时的进程内实现，语义与 redis 版一致
// （逻辑 TTL，读取时惰性清理过期成员）。单机部署够用。
type memoryPresence struct {
	mu    sync.Mutex
	rooms map[string]map[string]memberEntry // roomID -> connID -> entry
}

type memberEntry struct {
	name     string
	expireAt time.Time
}

func NewMemoryPresence() PresenceCache {
	return &memoryPresence{rooms: make(map[string]map[string]memberEntry)}
}

func (p *memoryPresence) AddMember(_ context.Context, roomID, connID, name string, ttl time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rooms[roomID] == nil {
		p.rooms[roomID] = make(map[string]memberEntry)
	}
	p.rooms[roomID][connID] = memberEntry{name: name, expireAt: time.Now().Add(ttl)}
	return nil
}

func (p *memoryPresence) RemoveMember(_ context.Context, roomID, connID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if members, ok := p.rooms[roomID]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(p.rooms, roomID)
		}
	}
	return nil
}

func (p *memoryPresence) AliveMembers(_ context.Context, roomID string) ([]PresenceMember, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	members := p.rooms[roomID]
	if len(members) == 0 {
		return nil, nil
	}
	now := time.Now()
	out := make([]PresenceMember, 0, len(members))
	for id, m := range members {
		if m.expireAt.Before(now) {
			delete(members, id)
			continue
		}
		out = append(out, PresenceMember{ConnID: id, Name: m.name})
	}
	return out, nil
}

func (p *memoryPresence) Rooms(_ context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.rooms))
	for id := range p.rooms {
		out = append(out, id)
	}
	return out, nil
}
