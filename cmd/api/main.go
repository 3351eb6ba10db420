package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	_ "github.com/jhoicas/cfdi-timbrado/docs"
	"github.com/jhoicas/cfdi-timbrado/internal/application/billing"
	"github.com/jhoicas/cfdi-timbrado/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-timbrado/internal/infrastructure/events"
	"github.com/jhoicas/cfdi-timbrado/internal/infrastructure/filestore"
	"github.com/jhoicas/cfdi-timbrado/internal/infrastructure/metrics"
	"github.com/jhoicas/cfdi-timbrado/internal/infrastructure/pac"
	infrapdf "github.com/jhoicas/cfdi-timbrado/internal/infrastructure/pdf"
	"github.com/jhoicas/cfdi-timbrado/internal/infrastructure/postgres"
	"github.com/jhoicas/cfdi-timbrado/internal/infrastructure/sello"
	"github.com/jhoicas/cfdi-timbrado/internal/infrastructure/xsd"
	httpRouter "github.com/jhoicas/cfdi-timbrado/internal/interfaces/http"
	"github.com/jhoicas/cfdi-timbrado/pkg/config"
	"github.com/jhoicas/cfdi-timbrado/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	zl := log.Zerolog()
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("rfc", cfg.Issuer.Rfc).
		Bool("test", cfg.Issuer.Test).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB, zl)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()
	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("migración")
	}
	invoiceRepo := postgres.NewInvoiceRepository(pool)

	// CSD del emisor: sin rutas sólo se aceptan comprobantes de prueba.
	csd, err := sello.LoadFromConfig(cfg.Issuer)
	if err != nil {
		log.Fatal().Err(err).Msg("cargar CSD")
	}
	if csd != nil {
		log.Info().Str("no_certificado", csd.NoCertificado).Str("fingerprint", csd.Fingerprint()).Msg("CSD cargado")
	}

	// Métricas Prometheus en un registro propio.
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	pacMetrics := metrics.NewPAC(reg)

	// Eventos RabbitMQ (opcional)
	var publisher *events.Publisher
	if cfg.RabbitMQ.URL != "" {
		publisher, err = events.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, zl)
		if err != nil {
			log.Error().Err(err).Msg("RabbitMQ no disponible; se continúa sin eventos")
			publisher = nil
		} else {
			defer publisher.Close()
		}
	}

	hooks := pac.Hooks{
		OnError: func(c *cfdi.Comprobante, err error) {
			zl.Warn().Err(err).Str("uuid", c.Timbre.UUID).Msg("post-proceso del timbre")
		},
	}
	var notifier billing.CancelNotifier
	if publisher != nil {
		hooks.OnStamped = publisher.OnStamped
		notifier = publisher
	}

	creds := pac.CredentialsFromConfig(cfg.PAC)
	providers := pac.NewProviders(creds, pacMetrics)
	dispatcher := pac.NewDispatcher(zl, pacMetrics, hooks, providers...)
	cancelDispatcher := pac.NewCancelDispatcher(zl, pacMetrics, pac.Routes(creds), providers...)

	// Copia en disco de los XML timbrados
	var store billing.XMLStore
	if cfg.Storage.XMLDir != "" {
		fs, err := filestore.New(cfg.Storage.XMLDir)
		if err != nil {
			log.Fatal().Err(err).Str("dir", cfg.Storage.XMLDir).Msg("almacén de XML")
		}
		store = fs
	}

	// Validación XSD (opcional)
	var validator billing.SchemaValidator
	if cfg.Storage.XSDPath != "" {
		v, err := xsd.NewValidator(cfg.Storage.XSDPath)
		if err != nil {
			log.Fatal().Err(err).Str("xsd", cfg.Storage.XSDPath).Msg("cargar esquema XSD")
		}
		defer xsd.Cleanup()
		defer v.Close()
		validator = v
	}

	stampCfg := billing.StampConfig{
		Issuer: cfdi.Issuer{
			Rfc:             cfg.Issuer.Rfc,
			Nombre:          cfg.Issuer.Nombre,
			RegimenFiscal:   cfg.Issuer.RegimenFiscal,
			LugarExpedicion: cfg.Issuer.LugarExpedicion,
			Version:         cfg.Issuer.Version,
			Test:            cfg.Issuer.Test,
		},
		CSD:      csd,
		Provider: pac.DefaultProvider(cfg.PAC, cfg.Issuer.Test),
	}
	createUC := billing.NewCreateCFDIUseCase(invoiceRepo, sello.NewService(zl), dispatcher, store, validator, stampCfg, zl)
	queryUC := billing.NewQueryUseCase(invoiceRepo, store)
	cancelUC := billing.NewCancelCFDIUseCase(invoiceRepo, cancelDispatcher, notifier, zl)
	pdfUC := billing.NewPDFUseCase(invoiceRepo, infrapdf.NewMarotoPDFGenerator())

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: pac.RESTTimeout + 15*time.Second,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat("./docs/swagger.json"); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: "./docs/swagger.json",
			Path:     "docs",
			Title:    "CFDI Timbrado API",
		}))
	}

	deps := httpRouter.RouterDeps{
		CreateCFDI:  createUC,
		Query:       queryUC,
		Cancel:      cancelUC,
		PDF:         pdfUC,
		IssuerRFC:   cfg.Issuer.Rfc,
		JWTSecret:   cfg.JWT.Secret,
		ServiceName: cfg.App.Name,
		Logger:      log,
	}
	if cfg.Metrics.Enabled {
		deps.Gatherer = reg
	}
	httpRouter.Router(app, deps)

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
