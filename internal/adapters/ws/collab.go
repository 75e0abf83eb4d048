package ws

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dkeye/meetassist/internal/app"
	"github.com/dkeye/meetassist/internal/app/collab"
	"github.com/dkeye/meetassist/internal/core"
	"github.com/dkeye/meetassist/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// CollabController serves /ws/yjs/:room_id. Payloads are relayed as is.
type CollabController struct {
	Relay *collab.Relay
	Conns *app.Registry
	Opts  Options
}

func NewCollabController(relay *collab.Relay, conns *app.Registry, opts Options) *CollabController {
	return &CollabController{Relay: relay, Conns: conns, Opts: opts}
}

func (ctl *CollabController) HandleRoom(ctx context.Context, c *gin.Context) {
	roomID := domain.RoomID(strings.TrimSpace(c.Param("room_id")))
	if roomID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "room id is empty"})
		return
	}
	member := domain.NewMember(roomID)
	sid := core.SessionID(member.ID)
	log.Info().Str("module", "ws.collab").Str("room", string(roomID)).Str("member", string(member.ID)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "ws.collab").Msg("ws upgrade")
		return
	}

	conn := newWsConn(ws, websocket.BinaryMessage, ctl.Opts.SendBuffer)
	err = ctl.Conns.Register(sid, conn, func() { ctl.Relay.Leave(roomID, member.ID) })
	if err != nil {
		log.Error().Err(err).Str("module", "ws.collab").Msg("register")
		conn.Close()
		return
	}
	if err := ctl.Relay.Join(roomID, member.ID, conn); err != nil {
		log.Warn().Err(err).Str("module", "ws.collab").Str("room", string(roomID)).Msg("join failed")
		ctl.Conns.Unregister(sid)
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	go writePump(ctx, conn, ctl.Opts, "ws.collab")
	go func() {
		defer func() {
			ctl.Conns.UnregisterConn(sid, conn)
			cancel()
		}()
		readPump(ctx, conn, ctl.Opts, "ws.collab", string(member.ID), func(data []byte) {
			ctl.relay(member, data)
		})
	}()
}

func (ctl *CollabController) relay(m *domain.Member, data []byte) {
	res, err := ctl.Relay.Broadcast(m.Room, m.ID, data)
	if err != nil {
		if !errors.Is(err, collab.ErrRoomNotFound) {
			log.Error().Err(err).Str("module", "ws.collab").Str("room", string(m.Room)).Msg("broadcast")
		}
		return
	}
	for _, mid := range res.Dropped {
		ctl.Conns.Unregister(core.SessionID(mid))
	}
}
