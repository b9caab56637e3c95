package cache

import "fmt"

// 键语义：
// - roomKey(roomID):  房间在线成员（ZSet<connID, expireAtUnix>，score=expireAt）
// - namesKey(roomID): 房间内 connID→昵称 映射（Hash）

const (
	keyRoomFmt  = "presence:room:{roomID:%s}"       // ZSet<connID, expireAtUnix>
	keyNamesFmt = "presence:room:names:{roomID:%s}" // Hash<connID -> name>
)

func roomKey(roomID string) string  { return fmt.Sprintf(keyRoomFmt, roomID) }
func namesKey(roomID string) string { return fmt.Sprintf(keyNamesFmt, roomID) }
