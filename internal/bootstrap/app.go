package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/locvowork/conductores_admin/internal/config"
	"github.com/locvowork/conductores_admin/internal/handler"
	"github.com/locvowork/conductores_admin/internal/logger"
	"github.com/locvowork/conductores_admin/internal/metrics"
	"github.com/locvowork/conductores_admin/internal/notify"
	"github.com/locvowork/conductores_admin/internal/repository"
	"github.com/locvowork/conductores_admin/internal/service"
	"github.com/locvowork/conductores_admin/internal/store"
)

const (
	evictionInterval = time.Minute
	shutdownTimeout  = 10 * time.Second
)

// Settings is everything Build needs; Initialize fills it from the environment.
type Settings struct {
	Port             string
	APIBaseURL       string
	SocketURL        string
	RequestTimeout   time.Duration
	AllowedOrigins   []string
	PageSize         int
	SignedURLWorkers int
	ViewTTL          time.Duration
}

type App struct {
	Echo     *echo.Echo
	Views    *store.Registry
	Hub      *notify.Hub
	Metrics  *prometheus.Registry
	listener *notify.Listener
	port     string
}

func NewApp() *App {
	e := echo.New()
	e.HideBanner = true
	return &App{Echo: e}
}

func (a *App) Initialize(ctx context.Context) error {
	// Load environment configuration
	if err := config.LoadEnvConfig(); err != nil {
		return fmt.Errorf("failed to load env config: %w", err)
	}
	cfg := config.DefaultEnvConfig

	// Initialize logging
	logger.InitLogging(cfg.LOG_FILE_PATH, cfg.LOG_LEVEL)
	logger.InfoLog(ctx, "Environment variables loaded successfully")

	return a.Build(Settings{
		Port:             cfg.APP_PORT,
		APIBaseURL:       cfg.API_BASE_URL,
		SocketURL:        cfg.SOCKET_URL,
		RequestTimeout:   cfg.REQUEST_TIMEOUT,
		AllowedOrigins:   cfg.CORS_ALLOWED_ORIGINS,
		PageSize:         cfg.PAGE_SIZE,
		SignedURLWorkers: cfg.SIGNED_URL_WORKERS,
		ViewTTL:          cfg.VIEW_TTL,
	})
}

// Build wires repositories, services and handlers and registers every route.
func (a *App) Build(s Settings) error {
	a.port = s.Port
	a.Metrics = prometheus.NewRegistry()
	a.Metrics.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(a.Metrics)

	// Initialize dependencies
	client, err := repository.NewClient(s.APIBaseURL, s.RequestTimeout, repository.WithMetrics(m))
	if err != nil {
		return fmt.Errorf("failed to create upstream client: %w", err)
	}
	conductorRepo := repository.NewConductorRepository(client)
	documentRepo := repository.NewDocumentRepository(client)

	a.Views = store.NewRegistry(s.ViewTTL, m)
	a.Hub = notify.NewHub(m)
	if s.SocketURL != "" {
		a.listener = notify.NewListener(s.SocketURL, a.Hub, m)
	}

	conductorSvc := service.NewConductorService(conductorRepo, documentRepo, service.Options{
		PageSize:         s.PageSize,
		SignedURLWorkers: s.SignedURLWorkers,
	})
	stagingSvc := service.NewStagingService(m)

	conductorHandler := handler.NewConductorHandler(conductorSvc, a.Views)
	documentHandler := handler.NewDocumentHandler(stagingSvc, conductorSvc, a.Views)
	notificationHandler := handler.NewNotificationHandler(a.Hub)

	// Register Middlewares
	a.RegisterMiddlewares(s.AllowedOrigins)

	// Register Routes
	a.RegisterRoutes(conductorHandler, documentHandler, notificationHandler)

	return nil
}

func (a *App) RegisterMiddlewares(allowedOrigins []string) {
	a.Echo.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		RequestIDHandler: func(c echo.Context, id string) {
			ctx := logger.WithLogger(c.Request().Context(), map[string]interface{}{"request_id": id})
			c.SetRequest(c.Request().WithContext(ctx))
		},
	}))
	a.Echo.Use(middleware.Logger())
	a.Echo.Use(middleware.Recover())
	a.Echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowedOrigins,
		AllowHeaders: []string{
			echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization,
			handler.HeaderVistaID, handler.HeaderSocketID,
		},
		ExposeHeaders: []string{handler.HeaderVistaID, echo.HeaderContentDisposition},
	}))
}

func (a *App) RegisterRoutes(ch *handler.ConductorHandler, dh *handler.DocumentHandler, nh *handler.NotificationHandler) {
	a.Echo.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	a.Echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(a.Metrics, promhttp.HandlerOpts{})))
	a.Echo.GET("/ws/notificaciones", nh.SocketHandler)

	conductores := a.Echo.Group("/api/conductores")
	conductores.GET("", ch.ListHandler)
	conductores.GET("/estadisticas", ch.StatsHandler)
	conductores.GET("/ordenar", ch.SortHandler)
	conductores.GET("/exportar", ch.ExportHandler)
	conductores.GET("/:id", ch.GetHandler)
	conductores.POST("", ch.CreateHandler)
	conductores.PUT("/:id", ch.UpdateHandler)
	conductores.POST("/crear-con-ia", ch.CreateWithAIHandler)
	conductores.PUT("/actualizar-con-ia/:id", ch.UpdateWithAIHandler)

	documentos := a.Echo.Group("/api/documentos")
	documentos.GET("/staging", dh.ListStagedHandler)
	documentos.PUT("/staging/:categoria", dh.StageHandler)
	documentos.DELETE("/staging/:categoria", dh.UnstageHandler)
	documentos.POST("/validar", dh.ValidateHandler)
	documentos.POST("/recortar", dh.CropHandler)
	documentos.GET("/url-firma", dh.SignedURLHandler)
	documentos.GET("/descargar/:id", dh.DownloadHandler)
}

// Run serves HTTP and runs the background loops until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.Hub.Run(ctx)
	go a.Views.Run(ctx, evictionInterval)
	if a.listener != nil {
		go a.listener.Run(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Echo.Start(":" + a.port)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.InfoLog(ctx, "shutting down")
		shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stop()
		return a.Echo.Shutdown(shutdownCtx)
	}
}
