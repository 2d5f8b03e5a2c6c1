// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/amirphl/gateway-campaign-broker/app/dto"
	"github.com/amirphl/gateway-campaign-broker/app/handlers"
	"github.com/amirphl/gateway-campaign-broker/app/middleware"
	"github.com/amirphl/gateway-campaign-broker/config"
	"github.com/amirphl/gateway-campaign-broker/utils"
)

const healthPath = "/api/v1/health"

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app             *fiber.App
	server          config.ServerConfig
	metrics         config.MetricsConfig
	campaignHandler handlers.CampaignHandlerInterface
	callbackHandler *handlers.CallbackHandler
	authMiddleware  *middleware.AuthMiddleware
	logger          *zap.Logger
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(
	server config.ServerConfig,
	metrics config.MetricsConfig,
	campaignHandler handlers.CampaignHandlerInterface,
	callbackHandler *handlers.CallbackHandler,
	authMiddleware *middleware.AuthMiddleware,
	log *zap.Logger,
) Router {
	if log == nil {
		log = zap.NewNop()
	}

	r := &FiberRouter{
		server:          server,
		metrics:         metrics,
		campaignHandler: campaignHandler,
		callbackHandler: callbackHandler,
		authMiddleware:  authMiddleware,
		logger:          log,
	}

	r.app = fiber.New(fiber.Config{
		AppName:      "Gateway Campaign Broker",
		ErrorHandler: r.errorHandler,
		BodyLimit:    server.BodyLimit,
		ReadTimeout:  server.ReadTimeout,
		WriteTimeout: server.WriteTimeout,
		IdleTimeout:  server.IdleTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return r
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	r.setupMiddleware()

	if r.metrics.Enabled {
		r.app.Get(r.metrics.Path, middleware.MetricsHandler())
	}

	api := r.app.Group("/api/v1")
	api.Get("/health", r.healthCheck)

	campaigns := api.Group("/campaigns", r.authMiddleware.Authenticate())
	campaigns.Post("/", r.campaignHandler.CreateCampaign)
	campaigns.Get("/:uuid", r.campaignHandler.GetCampaign)
	campaigns.Delete("/:uuid", r.campaignHandler.DeleteCampaign)
	campaigns.Put("/:uuid/targeting", r.campaignHandler.UpdateTargeting)
	campaigns.Post("/:uuid/register", r.campaignHandler.RegisterCampaign)
	campaigns.Post("/:uuid/reconcile", r.campaignHandler.ReconcileRegistration)
	campaigns.Post("/:uuid/approval", r.campaignHandler.RequestApproval)
	campaigns.Post("/:uuid/test-send", r.campaignHandler.TestSend)
	campaigns.Post("/:uuid/refresh", r.campaignHandler.RefreshStatus)
	campaigns.Get("/:uuid/stats", r.campaignHandler.GetStats)
	campaigns.Get("/:uuid/stats/export", r.campaignHandler.ExportStats)

	gateway := api.Group("/gateway")
	gateway.Get("/meta/:kind", r.authMiddleware.Authenticate(), r.campaignHandler.GetMeta)

	// The gateway authenticates with the shared secret, not an operator token
	gateway.Post("/callbacks", limiter.New(limiter.Config{
		Max:        r.server.CallbackRateLimit,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			// only 500 makes the gateway redeliver
			return c.Status(fiber.StatusInternalServerError).JSON(dto.GatewayCallbackResponse{Error: "rate limit exceeded"})
		},
	}), r.callbackHandler.HandleCallback)

	r.app.Use(r.notFoundHandler)
}

func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header:    utils.RequestIDHeader,
		Generator: uuid.NewString,
	}))

	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			r.logger.Error("Panic while serving request",
				zap.Any("panic", e),
				zap.String("request_id", requestid.FromContext(c)),
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
			)
		},
	}))

	r.app.Use(helmet.New())

	if len(r.server.AllowedOrigins) > 0 {
		r.app.Use(cors.New(cors.Config{
			AllowOrigins:  r.server.AllowedOrigins,
			AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", utils.RequestIDHeader},
			ExposeHeaders: []string{utils.RequestIDHeader},
			MaxAge:        utils.CORSMaxAge,
		}))
	}

	r.app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     `{"time":"${time}","request_id":"${respHeader:X-Request-ID}","method":"${method}","path":"${path}","ip":"${ip}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent}}` + "\n",
		TimeFormat: time.RFC3339,
		TimeZone:   "UTC",
		Next: func(c fiber.Ctx) bool {
			return c.Path() == healthPath
		},
	}))

	r.app.Use(middleware.Metrics())
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	r.logger.Info("Starting server", zap.String("address", address))
	return r.app.Listen(address)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Service is healthy",
		Data: fiber.Map{
			"status":    "ok",
			"timestamp": utils.UTCNow().Unix(),
			"service":   "gateway-campaign-broker",
		},
	})
}

func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": requestid.FromContext(c),
			},
		},
	})
}

func (r *FiberRouter) errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "An internal server error occurred"
	errorCode := "INTERNAL_ERROR"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
		errorCode = "HTTP_ERROR"
	}

	if code >= fiber.StatusInternalServerError {
		r.logger.Error("Request failed",
			zap.Int("status", code),
			zap.String("request_id", requestid.FromContext(c)),
			zap.Error(err),
		)
	}

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code: errorCode,
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": requestid.FromContext(c),
			},
		},
	})
}
