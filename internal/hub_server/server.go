package hub_server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	gommonlog "github.com/labstack/gommon/log"
	slogecho "github.com/samber/slog-echo"

	. "github.com/half-nothing/strip-sync/internal/interfaces"
	c "github.com/half-nothing/strip-sync/internal/interfaces/config"
	"github.com/half-nothing/strip-sync/internal/interfaces/log"
	"github.com/half-nothing/strip-sync/internal/interfaces/operation"
	. "github.com/half-nothing/strip-sync/internal/interfaces/strips"
	"github.com/half-nothing/strip-sync/internal/utils"
)

type HubServerShutdownCallback struct {
	serverHandler *echo.Echo
	hub           *Hub
	snapshots     *SnapshotBuilder
}

func NewHubServerShutdownCallback(serverHandler *echo.Echo, hub *Hub, snapshots *SnapshotBuilder) *HubServerShutdownCallback {
	return &HubServerShutdownCallback{
		serverHandler: serverHandler,
		hub:           hub,
		snapshots:     snapshots,
	}
}

func (callback *HubServerShutdownCallback) Invoke(ctx context.Context) error {
	callback.snapshots.Stop()
	if err := callback.hub.Shutdown(ctx); err != nil {
		return err
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return callback.serverHandler.Shutdown(timeoutCtx)
}

// StartHubServer 启动同步中心: 四条websocket通道与健康检查端点
func StartHubServer(applicationContent *ApplicationContent) {
	config := applicationContent.ConfigManager().Config()
	logger := applicationContent.Logger()
	httpConfig := config.Server.HttpServer
	hubConfig := config.Server.Hub

	hub := NewHub(logger, hubConfig)
	presence := NewPresenceRegistry(hubConfig.PresenceDuration)
	snapshots := NewSnapshotBuilder(logger, hubConfig, applicationContent.Operations(), hub)
	service := NewHubService(logger, applicationContent.Operations(), hub, presence, snapshots)

	e := echo.New()
	e.Logger.SetOutput(io.Discard)
	e.Logger.SetLevel(gommonlog.OFF)

	switch httpConfig.ProxyType {
	case 0:
		e.IPExtractor = echo.ExtractIPDirect()
	case 1:
		e.IPExtractor = echo.ExtractIPFromXFFHeader()
	case 2:
		e.IPExtractor = echo.ExtractIPFromRealIPHeader()
	default:
		logger.WarnF("Invalid proxy type %d, using default (direct)", httpConfig.ProxyType)
		e.IPExtractor = echo.ExtractIPDirect()
	}

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(ctx echo.Context, err error, stack []byte) error {
			logger.ErrorF("Recovered from a fatal error: %v, stack: %s", err, string(stack))
			return err
		},
	}))

	loggerConfig := slogecho.Config{
		DefaultLevel:     slog.LevelInfo,
		ClientErrorLevel: slog.LevelWarn,
		ServerErrorLevel: slog.LevelError,
	}
	e.Use(slogecho.NewWithConfig(slog.Default(), loggerConfig))
	e.Use(middleware.Secure())
	e.Use(middleware.CORS())
	if httpConfig.BodyLimit != "" {
		e.Use(middleware.BodyLimit(httpConfig.BodyLimit))
	}

	jwtMiddleware := echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(httpConfig.JWT.Secret),
		TokenLookup:   "query:token",
		SigningMethod: "HS512",
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(StripClaims)
		},
	})

	server := &hubServer{
		logger:     logger,
		service:    service,
		hub:        hub,
		operations: applicationContent.Operations(),
		hubConfig:  hubConfig,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}

	e.GET("/api/health", func(ctx echo.Context) error {
		return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/ws/session", server.handleChannel(SessionChannel), jwtMiddleware)
	e.GET("/ws/arrivals", server.handleChannel(ArrivalsChannel), jwtMiddleware)
	e.GET("/ws/overview", server.handleChannel(OverviewChannel), jwtMiddleware)
	e.GET("/ws/presence", server.handleChannel(PresenceChannel), jwtMiddleware)

	go snapshots.Run()

	applicationContent.Cleaner().Add(NewHubServerShutdownCallback(e, hub, snapshots))

	logger.InfoF("Starting hub server on %s", httpConfig.Address)
	if err := e.Start(httpConfig.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.FatalF("Hub server error: %v", err)
	}
}

type hubServer struct {
	logger     log.LoggerInterface
	service    *HubService
	hub        *Hub
	operations *operation.DatabaseOperations
	hubConfig  *c.HubConfig
	upgrader   websocket.Upgrader
}

// handleChannel 通道接入: 校验凭据与会话归属, 升级连接,
// 入房并发送该通道的初始负载.
func (server *hubServer) handleChannel(kind ChannelKind) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		token, ok := ctx.Get("user").(*jwt.Token)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
		}
		claims, ok := token.Claims.(*StripClaims)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "malformed claims")
		}

		user := &UserDescriptor{ID: claims.UserID, Username: claims.Username}
		if raw := ctx.QueryParam("user"); raw != "" {
			descriptor := &UserDescriptor{}
			if err := json.Unmarshal([]byte(raw), descriptor); err == nil && descriptor.ID == claims.UserID {
				user = descriptor
			}
		}

		// 提权是显式请求的: 令牌允许且连接参数声明才生效
		elevated := claims.Elevated && utils.StrToBool(ctx.QueryParam("elevated"), false)

		var sessionID, airport string
		if kind == OverviewChannel {
			if !elevated {
				return echo.NewHTTPError(http.StatusForbidden, "overview requires elevated access")
			}
		} else {
			sessionID = ctx.QueryParam("sessionId")
			accessID := ctx.QueryParam("accessId")
			session, err := server.operations.SessionOperation().VerifySessionAccess(sessionID, accessID)
			if err != nil {
				server.logger.WarnF("[hub] session access denied for %s: %v", sessionID, err)
				return echo.NewHTTPError(http.StatusForbidden, "session access denied")
			}
			airport = session.Airport
		}

		conn, err := server.upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
		if err != nil {
			return err
		}

		client := NewHubClient(
			server.logger, conn, kind, sessionID, airport, user, elevated,
			server.hubConfig.SendBufferSize,
			server.hubConfig.WriteDuration,
			server.hubConfig.PongDuration,
		)
		if err := server.hub.AddClient(client); err != nil {
			server.logger.WarnF("[hub] reject client on %s: %v", ctx.Path(), err)
			_ = conn.Close()
			return nil
		}

		client.Run(server.service.HandleEnvelope, server.service.OnClientClosed)

		switch kind {
		case SessionChannel:
			server.service.SendFlightList(client)
		case ArrivalsChannel:
			server.service.SendArrivalList(client)
		case OverviewChannel:
			client.SendEvent(EventOverviewSnapshot, server.service.snapshots.Snapshot())
		case PresenceChannel:
			server.service.OnPresenceJoined(client)
		}
		return nil
	}
}
