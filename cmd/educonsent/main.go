package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	educonsent "github.com/WhitehatD/Student-Identity-Consent"
	"github.com/WhitehatD/Student-Identity-Consent/api/consentapi"
	"github.com/WhitehatD/Student-Identity-Consent/chain"
	"github.com/WhitehatD/Student-Identity-Consent/cmd/educonsent/config"
	"github.com/WhitehatD/Student-Identity-Consent/consent"
	"github.com/WhitehatD/Student-Identity-Consent/gateway"
	"github.com/WhitehatD/Student-Identity-Consent/internal/cache"
	"github.com/WhitehatD/Student-Identity-Consent/internal/logger"
	"github.com/WhitehatD/Student-Identity-Consent/internal/version"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var configFile string
	if len(os.Args) > 1 {
		configFile = os.Args[1]
	}
	if err := config.Load(configFile); err != nil {
		log.WithError(err).Fatal("could not load config")
	}
	c := config.Get()
	if err := logger.Init(c.Logging.InternalLogger()); err != nil {
		log.WithError(err).Fatal("could not init logger")
	}
	log.WithField("version", version.VERSION).Info("Loaded Config")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := config.LoadStorage(c.Storage)
	if err != nil {
		log.WithError(err).Fatal("could not load storage")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.WithError(err).Error("could not close database")
		}
	}()
	if err = store.Ping(ctx); err != nil {
		log.WithError(err).Fatal("database is not reachable")
	}
	if c.Demo.SeedCourses {
		if _, err = store.Seeder().SeedCourses(ctx); err != nil {
			log.WithError(err).Error("could not seed course catalogue")
		}
	}

	client, err := chain.Dial(ctx, c.Chain.ClientConfig())
	if err != nil {
		log.WithError(err).Fatal("could not connect to ethereum node")
	}
	defer client.Close()

	var serviceOpts []consent.ServiceOption
	if c.Caching.Enabled() {
		logCache, rdb, err := cache.UseRedis(ctx, c.Caching.Options())
		if err != nil {
			log.WithError(err).Fatal("could not init redis cache")
		}
		defer rdb.Close()
		serviceOpts = append(serviceOpts, consent.WithLogCache(logCache))
		log.Info("Loaded Redis Cache")
	}
	consents := consent.NewService(client, serviceOpts...)

	accessLog, err := logger.AccessWriter(c.Logging.AccessLogger())
	if err != nil {
		log.WithError(err).Fatal("could not open access log")
	}
	serverConf := c.Server
	serverConf.AccessLog = accessLog

	backs := store.Backends()
	deps := consentapi.Deps{
		Wallets:  backs.Wallets,
		Students: gateway.New(backs.Wallets, backs.Records, consents),
		Consents: consents,
		Chain:    client,
		Meta:     backs.KV,
	}
	if c.Demo.SeedOnRegister {
		deps.Seeder = store.Seeder()
	}
	server := educonsent.NewServer(serverConf, deps)
	log.Info("Added Endpoints")

	errs := make(chan error, 1)
	go func() {
		errs <- server.Start()
	}()
	select {
	case err = <-errs:
		if err != nil {
			log.WithError(err).Error("server stopped")
		}
	case <-ctx.Done():
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err = server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("could not shut down server gracefully")
		}
	}
}
