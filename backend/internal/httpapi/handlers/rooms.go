package handlers

import (
	"context"
	"time"

	"canvasServer/backend/internal/cache"

	"github.com/gin-gonic/gin"
)

type RoomInfo struct {
	RoomID  string                 `json:"roomId"`
	Members []cache.PresenceMember `json:"members"`
}

// ListRooms 列出有活跃心跳的房间及成员。数据来自 presence 缓存，
// 是监控视图，不是房间内的权威成员表。
func ListRooms(presence cache.PresenceCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		roomIDs, err := presence.Rooms(ctx)
		if err != nil {
			c.JSON(500, gin.H{"error": "presence unavailable"})
			return
		}
		rooms := make([]RoomInfo, 0, len(roomIDs))
		for _, id := range roomIDs {
			members, err := presence.AliveMembers(ctx, id)
			if err != nil {
				continue
			}
			rooms = append(rooms, RoomInfo{RoomID: id, Members: members})
		}
		c.JSON(200, gin.H{"rooms": rooms})
	}
}
