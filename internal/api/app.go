package api

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/isqad/livecam-gateway/internal/config"
	"github.com/isqad/livecam-gateway/internal/core"
	"github.com/isqad/livecam-gateway/internal/eventbus"
	"github.com/isqad/livecam-gateway/internal/gateway"
)

// SegmentRoute is where rewritten manifest lines point segment fetches.
const SegmentRoute = "/api/v1/live/hls/segment"

// AppOptions is options of the application
type AppOptions struct {
	Env     core.Environment
	Address string
	Config  *config.Config

	EventsPublisher eventbus.Publisher

	registry *gateway.ProcessRegistry
	packager *gateway.HlsPackager
	streamer *gateway.MjpegStreamer
	whep     *gateway.WhepProxy
}

// App is the live-video gateway application
type App struct {
	AppOptions
}

// New creates the gateway application and its components.
func New(options AppOptions) *App {
	if options.EventsPublisher == nil {
		options.EventsPublisher = eventbus.Noop{}
	}

	spawner := gateway.NewFFmpegSpawner(options.Config.FFmpegPath)

	options.registry = gateway.NewProcessRegistry(spawner, options.Config.ScratchDir, options.EventsPublisher)
	options.packager = gateway.NewHlsPackager(options.registry, options.Config.ScratchDir, SegmentRoute)
	options.streamer = gateway.NewMjpegStreamer(spawner, options.Config.MjpegFPS)
	options.whep = gateway.NewWhepProxy(options.Config.WhepPrimaryURL, options.Config.WhepFallbackURL)

	return &App{options}
}

func (app *App) Start() error {
	quit := make(chan os.Signal, 1)
	done := make(chan struct{}, 1)

	app.initLogger()
	router := app.initRouter()

	if err := os.MkdirAll(app.Config.ScratchDir, 0o755); err != nil {
		return err
	}

	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	server := &http.Server{
		Addr:              app.Address,
		Handler:           router,
		ReadHeaderTimeout: 1 * time.Second,
	}

	server.RegisterOnShutdown(func() {
		log.Warn().Msg("received signal to terminate the server")
		app.registry.Shutdown()
		log.Info().Msg("all services are stopped")
		close(done)
	})

	// Shutdown the HTTP server
	go func() {
		<-quit
		log.Warn().Msg("the server is going shutting down")

		// Wait 20 seconds for close http connections
		waitIdleConnCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(waitIdleConnCtx); err != nil {
			log.Fatal().Err(err).Msg("can't gracefully shutdown the server")
		}
	}()

	err := server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server has been closed immediatelly")
	}

	<-done
	log.Info().Msg("server stopped")

	return nil
}

func (app *App) initLogger() {
	cw := zerolog.NewConsoleWriter()
	log.Logger = log.Output(cw)

	level := zerolog.InfoLevel

	if app.Env.IsDevelopment() {
		level = zerolog.DebugLevel
	}

	zerolog.SetGlobalLevel(level)
}

// initRouter is function for construct http router
func (app *App) initRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1/live", func(r chi.Router) {
		r.Get("/hls", HlsManifestHandler(app.packager, app.Config.DefaultSourceURL))
		r.Get("/hls/segment", HlsSegmentHandler(app.packager))
		r.Get("/mjpeg", MjpegStreamHandler(app.streamer, app.Config.DefaultSourceURL, app.EventsPublisher))
		r.Post("/whep", WhepNegotiateHandler(app.whep, app.EventsPublisher))
		r.Delete("/whep", WhepTeardownHandler(app.whep, app.EventsPublisher))
	})

	r.Method("GET", "/metrics", promhttp.Handler())

	return r
}

// sourceFromRequest resolves the camera source of a request: the src
// query parameter, the configured default otherwise. Unknown mode
// values fall back to the main stream.
func sourceFromRequest(r *http.Request, defaultURL string) (gateway.SourceDescriptor, error) {
	src := gateway.SourceDescriptor{
		URL:  r.URL.Query().Get("src"),
		Mode: gateway.ParseSourceMode(r.URL.Query().Get("mode")),
	}

	if src.URL == "" {
		src.URL = defaultURL
	}
	if src.URL == "" {
		return src, gateway.ErrNoSourceURL
	}

	return src, nil
}
