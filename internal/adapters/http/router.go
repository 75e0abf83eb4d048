package http

import (
	"context"

	"github.com/dkeye/meetassist/internal/adapters/ws"
	"github.com/dkeye/meetassist/internal/config"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const clientTokenKey = "client_token"

// ClientTokenMiddleware gives every browser a stable token kept in the
// cookie session. Front ends use it as their chat client id.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := sessions.Default(c)
		token, _ := s.Get(clientTokenKey).(string)
		if token == "" {
			token = uuid.NewString()
			s.Set(clientTokenKey, token)
			if err := s.Save(); err != nil {
				log.Error().Err(err).Str("module", "adapters.http").Msg("save session")
			}
		}
		c.Set(clientTokenKey, token)
		c.Next()
	}
}

// Services is everything the router serves.
type Services struct {
	Chat   *ws.ChatController
	Collab *ws.CollabController
	API    *API
}

func SetupRouter(ctx context.Context, cfg *config.Config, svc Services) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(cors.Default())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("MeetAssistSessions", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", svc.API.Root)
	r.GET("/health", svc.API.Health)

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	r.GET("/ws/ai-chat/:client_id", func(c *gin.Context) {
		svc.Chat.HandleChat(ctx, c)
	})
	r.GET("/ws/yjs/:room_id", func(c *gin.Context) {
		svc.Collab.HandleRoom(ctx, c)
	})

	api := r.Group("/api")
	api.GET("/whoami", svc.API.WhoAmI)
	api.GET("/rooms", svc.API.Rooms)
	api.POST("/chat", svc.API.Chat)
	api.POST("/transcribe", svc.API.Transcribe)
	api.POST("/analyze-sentiment", svc.API.AnalyzeSentiment)
	api.POST("/generate-summary", svc.API.GenerateSummary)

	return r
}
