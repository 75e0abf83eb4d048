package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dkeye/meetassist/internal/app/chat"
	"github.com/dkeye/meetassist/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	badFrameText    = "Invalid message format."
	rateLimitedText = "You're sending messages too quickly. Please slow down."
)

// ChatController serves /ws/ai-chat/:client_id.
type ChatController struct {
	Chat    *chat.Manager
	Limiter *ClientRateLimiter
	Opts    Options
}

func NewChatController(m *chat.Manager, limiter *ClientRateLimiter, opts Options) *ChatController {
	return &ChatController{Chat: m, Limiter: limiter, Opts: opts}
}

func (ctl *ChatController) HandleChat(ctx context.Context, c *gin.Context) {
	id, err := domain.ParseClientID(c.Param("client_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	log.Info().Str("module", "ws.chat").Str("client_id", string(id)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "ws.chat").Msg("ws upgrade")
		return
	}

	conn := newWsConn(ws, websocket.TextMessage, ctl.Opts.SendBuffer)
	if err := ctl.Chat.Connect(id, conn); err != nil {
		log.Warn().Err(err).Str("module", "ws.chat").Str("client_id", string(id)).Msg("connect rejected")
		closeWith(ws, websocket.ClosePolicyViolation, "client id already connected", ctl.Opts.WriteWait)
		conn.Close()
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	go writePump(ctx, conn, ctl.Opts, "ws.chat")
	go func() {
		defer func() {
			ctl.Chat.DisconnectConn(id, conn)
			if ctl.Limiter != nil {
				ctl.Limiter.Forget(id)
			}
			cancel()
		}()
		readPump(ctx, conn, ctl.Opts, "ws.chat", string(id), func(data []byte) {
			ctl.handle(ctx, id, data)
		})
	}()
}

func (ctl *ChatController) handle(ctx context.Context, id domain.ClientID, data []byte) {
	cmd, err := chat.DecodeCommand(data)
	switch {
	case errors.Is(err, chat.ErrUnknownCommand):
		log.Warn().Err(err).Str("module", "ws.chat").Str("client_id", string(id)).Msg("unknown command ignored")
		return
	case err != nil:
		log.Warn().Err(err).Str("module", "ws.chat").Str("client_id", string(id)).Msg("bad frame")
		ctl.Chat.Reject(id, badFrameText)
		return
	}

	if costly(cmd) && ctl.Limiter != nil && !ctl.Limiter.Allow(id) {
		ctl.Chat.Reject(id, rateLimitedText)
		return
	}

	if err := ctl.Chat.Dispatch(ctx, id, cmd); err != nil {
		log.Warn().Err(err).Str("module", "ws.chat").Str("client_id", string(id)).Msg("dispatch")
	}
}

// costly reports whether cmd reaches the AI backend.
func costly(cmd chat.Command) bool {
	switch cmd.(type) {
	case chat.TextCommand, chat.AudioCommand, chat.MeetingAudioCommand:
		return true
	}
	return false
}

func closeWith(ws *websocket.Conn, code int, text string, wait time.Duration) {
	_ = ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(wait))
}
