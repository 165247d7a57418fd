// Command server runs the HTTP driver demo for the streaming
// block-cipher transform: it wires a config.Loader, a keymanager.Manager
// (static or KMIP, per configuration), a registry.Registry, and
// internal/httpapi's Handler together behind gorilla/mux, with
// logging/recovery middleware, health/ready/live endpoints, and a
// Prometheus /metrics endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/kenneth/xmlenc-transform/internal/audit"
	"github.com/kenneth/xmlenc-transform/internal/config"
	"github.com/kenneth/xmlenc-transform/internal/hardware"
	"github.com/kenneth/xmlenc-transform/internal/httpapi"
	"github.com/kenneth/xmlenc-transform/internal/keymanager"
	"github.com/kenneth/xmlenc-transform/internal/metrics"
	"github.com/kenneth/xmlenc-transform/internal/middleware"
	"github.com/kenneth/xmlenc-transform/internal/registry"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the service's YAML configuration")
	version := flag.String("version", "dev", "version string reported by /health")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	loader, err := config.NewLoader(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("failed to load configuration")
	}
	cfg := loader.Current()

	metrics.SetVersion(*version)
	m := metrics.New()

	accel := hardware.Detect()
	m.SetHardwareAcceleration("aes-ni", accel.AESAccelerated)

	keyManager, err := buildKeyManager(cfg.KeyManager)
	if err != nil {
		logger.WithError(err).Fatal("failed to build key manager")
	}
	defer keyManager.Close(context.Background())

	loader.OnChange(func(config.Config) {
		logger.Info("configuration reloaded")
	})

	reg := registry.New(cfg.Registry.AllowedAlgorithms)

	auditLogger, err := audit.NewLoggerFromConfig(cfg.Audit)
	if err != nil {
		logger.WithError(err).Fatal("failed to build audit logger")
	}
	defer auditLogger.Close()

	tp, err := httpapi.NewTracerProvider()
	if err != nil {
		logger.WithError(err).Fatal("failed to build tracer provider")
	}
	otel.SetTracerProvider(tp)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(ctx)
	}()

	handler := httpapi.NewHandler(reg, keyManager, logger, m, auditLogger)

	router := mux.NewRouter()
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(httpapi.TracingMiddleware)
	handler.RegisterRoutes(router)
	router.Handle("/metrics", promhttp.Handler())

	addr := cfg.Server.ListenAddr
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}

	go func() {
		logger.WithField("addr", addr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server stopped unexpectedly")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
}

func buildKeyManager(cfg config.KeyManagerConfig) (keymanager.Manager, error) {
	switch cfg.Provider {
	case "kmip":
		return keymanager.NewKMIP(keymanager.KMIPOptions{
			Endpoint: cfg.KMIP.Endpoint,
			Keys:     []keymanager.KeyReference{{ID: cfg.KMIP.WrappingKeyID, Version: 1}},
			Timeout:  time.Duration(cfg.KMIP.TimeoutSeconds) * time.Second,
		})
	case "static", "":
		return keymanager.NewStatic(cfg.Static.Keys)
	default:
		return nil, fmt.Errorf("unknown key manager provider %q", cfg.Provider)
	}
}
