package ws

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func writePump(ctx context.Context, c *WsConn, opts Options, module string) {
	ticker := time.NewTicker(opts.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				_ = c.conn.SetWriteDeadline(time.Now().Add(opts.WriteWait))
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(opts.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", module).Msg("writePump set deadline")
				c.Close()
				return
			}
			if err := c.conn.WriteMessage(c.msgType, data); err != nil {
				log.Error().Err(err).Str("module", module).Msg("writePump write error")
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().Err(err).Str("module", module).Msg("writePump ping failed")
				c.Close()
				return
			}
		}
	}
}

// readPump feeds every inbound message to handle, one at a time, until
// the socket fails or ctx ends. A panic in handle ends only this
// connection.
func readPump(ctx context.Context, c *WsConn, opts Options, module, id string, handle func([]byte)) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("module", module).Str("sid", id).Interface("panic", r).Msg("readPump recovered")
		}
	}()

	c.conn.SetReadLimit(opts.ReadLimit)
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(opts.pongWait()))
	})

	for {
		if ctx.Err() != nil {
			log.Info().Str("module", module).Str("sid", id).Msg("readPump ctx done")
			return
		}
		// Handlers may run for seconds, so the deadline restarts per read.
		_ = c.conn.SetReadDeadline(time.Now().Add(opts.pongWait()))
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("module", module).Str("sid", id).Msg("readPump read error")
			}
			return
		}
		handle(data)
	}
}
