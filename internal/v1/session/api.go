// Package session - api.go
//
// REST introspection endpoints over the hub's room registry. These are
// read-only: the lobby lists rooms here before connecting, and share links
// probe room existence without opening a socket.
package session

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
)

// HandleListRooms responds to GET /api/rooms with every open room, oldest
// first.
func (h *Hub) HandleListRooms(c *gin.Context) {
	infos := h.roomInfos()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"rooms":   infos,
	})
}

// HandleGetRoom responds to GET /api/rooms/:roomId with one room's detail
// view (members and game state included), or 404 once the room has emptied
// out.
func (h *Hub) HandleGetRoom(c *gin.Context) {
	id := RoomIdType(c.Param("roomId"))
	room := h.lookupRoom(id)
	if room == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "Room not found",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"room":    room.Detail(),
	})
}

// HandleRoomExists responds to GET /api/rooms/:roomId/exists. Clients use it
// to validate an invite link before attempting to join.
func (h *Hub) HandleRoomExists(c *gin.Context) {
	id := RoomIdType(c.Param("roomId"))
	c.JSON(http.StatusOK, gin.H{"exists": h.lookupRoom(id) != nil})
}

func (h *Hub) roomInfos() []RoomInfo {
	h.mu.RLock()
	rooms := make([]*Room, 0, len(h.rooms))
	for _, room := range h.rooms {
		rooms = append(rooms, room)
	}
	h.mu.RUnlock()

	infos := make([]RoomInfo, 0, len(rooms))
	for _, room := range rooms {
		infos = append(infos, room.Info())
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}
