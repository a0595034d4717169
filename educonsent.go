package educonsent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/WhitehatD/Student-Identity-Consent/api/consentapi"
	"github.com/WhitehatD/Student-Identity-Consent/internal/metrics"
	"github.com/WhitehatD/Student-Identity-Consent/internal/version"
)

// DefaultPathPrefix is used when no path prefix is configured
const DefaultPathPrefix = "/api"

// DefaultCORSOrigins are the development servers of the web ui
var DefaultCORSOrigins = []string{
	"http://localhost:5173",
	"http://localhost:3000",
}

// FiberServerConfig is the fiber.Config that is used to init the http fiber.App
var FiberServerConfig = fiber.Config{
	ReadTimeout:    3 * time.Second,
	WriteTimeout:   20 * time.Second,
	IdleTimeout:    150 * time.Second,
	ReadBufferSize: 8192,
	Network:        "tcp",
}

// Server serves the consent api together with health and metrics endpoints
type Server struct {
	app     *fiber.App
	conf    ServerConf
	started time.Time
}

// NewServer creates a new Server and mounts all routes
func NewServer(conf ServerConf, deps consentapi.Deps) *Server {
	fiberConf := FiberServerConfig
	fiberConf.ErrorHandler = errorHandler(conf.ExposeErrors)
	if tps := conf.TrustedProxies; len(tps) > 0 {
		fiberConf.TrustedProxies = tps
		fiberConf.EnableTrustedProxyCheck = true
	}
	fiberConf.ProxyHeader = conf.ForwardedIPHeader
	if conf.PathPrefix == "" {
		conf.PathPrefix = DefaultPathPrefix
	}
	if len(conf.CORSOrigins) == 0 {
		conf.CORSOrigins = DefaultCORSOrigins
	}
	metrics.Init(version.VERSION)

	app := fiber.New(fiberConf)
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	loggerConf := logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}
	if conf.AccessLog != nil {
		loggerConf.Output = conf.AccessLog
	}
	app.Use(logger.New(loggerConf))
	app.Use(compress.New())
	app.Use(
		cors.New(
			cors.Config{
				AllowOrigins:     strings.Join(conf.CORSOrigins, ","),
				AllowHeaders:     "Origin, Content-Type, Accept, " + consentapi.HeaderRequesterAddress,
				AllowCredentials: true,
			},
		),
	)
	app.Use(metrics.Middleware())

	s := &Server{
		app:     app,
		conf:    conf,
		started: time.Now(),
	}
	app.Get("/health", s.health)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	consentapi.Register(app.Group(conf.PathPrefix), deps)
	app.Use(s.notFound)
	return s
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(
		fiber.Map{
			"status":    "OK",
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
			"uptime":    time.Since(s.started).Seconds(),
			"version":   version.VERSION,
		},
	)
}

// Endpoints returns the available endpoints including the path prefix
func (s *Server) Endpoints() []string {
	endpoints := make([]string, 0, len(consentapi.Endpoints)+2)
	for _, e := range consentapi.Endpoints {
		method, path, _ := strings.Cut(e, " ")
		endpoints = append(endpoints, method+" "+s.conf.PathPrefix+path)
	}
	return append(endpoints, "GET /health", "GET /metrics")
}

func (s *Server) notFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(
		fiber.Map{
			"error":              "Not Found",
			"message":            fmt.Sprintf("Route %s %s not found", c.Method(), c.Path()),
			"availableEndpoints": s.Endpoints(),
		},
	)
}

// Start starts the server and blocks until it stops. With TLS enabled an
// additional plain http server redirecting to https can be started.
func (s *Server) Start() error {
	conf := s.conf
	if !conf.TLS.Enabled {
		addr := fmt.Sprintf("%s:%d", conf.IPListen, conf.Port)
		log.WithField("addr", addr).Info("TLS is disabled starting http server")
		for _, e := range s.Endpoints() {
			log.Debug(e)
		}
		return s.app.Listen(addr)
	}
	if conf.TLS.RedirectHTTP {
		httpServer := fiber.New(FiberServerConfig)
		httpServer.All(
			"*", func(ctx *fiber.Ctx) error {
				//goland:noinspection HttpUrlsUsage
				return ctx.Redirect(
					strings.Replace(ctx.Request().URI().String(), "http://", "https://", 1),
					fiber.StatusPermanentRedirect,
				)
			},
		)
		log.Info("TLS and http redirect enabled, starting redirect server on port 80")
		go func() {
			if err := httpServer.Listen(fmt.Sprintf("%s:80", conf.IPListen)); err != nil {
				log.WithError(err).Error("redirect server stopped")
			}
		}()
	}
	port := conf.Port
	if port == 0 {
		port = 443
	}
	log.WithField("port", port).Info("TLS enabled, starting https server")
	return s.app.ListenTLS(fmt.Sprintf("%s:%d", conf.IPListen, port), conf.TLS.Cert, conf.TLS.Key)
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
