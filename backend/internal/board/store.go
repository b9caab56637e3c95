package board

import "sync"

// Store 维护 roomID -> Room 的进程级映射。
// 首次 Get 惰性创建，之后不回收：房间寿命 = 进程寿命。
// （空闲房间回收策略在源设计中未定，见 DESIGN.md。）
type Store struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewStore() *Store {
	return &Store{rooms: make(map[string]*Room)}
}

// Get 返回指定房间，不存在则创建。created 供调用方做一次性初始化
// （比如给新房间起广播泵）。
func (s *Store) Get(roomID string) (r *Room, created bool) {
	s.mu.RLock()
	r = s.rooms[roomID]
	s.mu.RUnlock()
	if r != nil {
		return r, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// 双检：拿写锁期间可能已被并发创建
	if r = s.rooms[roomID]; r != nil {
		return r, false
	}
	r = NewRoom(roomID)
	s.rooms[roomID] = r
	return r, true
}

// Lookup 只查不建。join 之外的动作（笔画、光标、撤销）引用未知房间时
// 调用方拿到 nil 后静默忽略即可。
func (s *Store) Lookup(roomID string) *Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rooms[roomID]
}

// RoomIDs 返回已创建的房间列表（监控接口用）。
func (s *Store) RoomIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.rooms))
	for id := range s.rooms {
		out = append(out, id)
	}
	return out
}
