package cmd

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	conf "github.com/fabdesk/backup-exporter/config"
	"github.com/fabdesk/backup-exporter/internal/app"
	"github.com/fabdesk/backup-exporter/internal/errors"
	"github.com/fabdesk/backup-exporter/internal/model"
	logging "github.com/fabdesk/backup-exporter/internal/otel"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

func Run() {

	// Load configuration
	config, appErr := conf.LoadConfig()
	if appErr != nil {
		slog.Error("backup_exporter.main.configuration_error", slog.String("error", errors.Details(appErr)))
		return
	}

	// slog + OTEL logging
	service := resource.NewSchemaless(
		semconv.ServiceName(model.AppServiceName),
		semconv.ServiceVersion(model.CurrentVersion),
		semconv.ServiceInstanceID(config.Consul.Id),
		semconv.ServiceNamespace(model.NamespaceName),
	)
	shutdown := logging.Setup(service)

	// Initialize the application
	application, appErr := app.New(config, shutdown)
	if appErr != nil {
		slog.Error("backup_exporter.main.application_initialization_error", slog.String("error", errors.Details(appErr)))
		return
	}

	// Initialize signal handling for graceful shutdown
	initSignals(application)

	// Log the configuration
	slog.Debug("backup_exporter.main.configuration_loaded",
		slog.String("consul", config.Consul.Address),
		slog.String("http_address", config.Consul.PublicAddress),
		slog.String("consul_id", config.Consul.Id),
	)

	// Start the application
	slog.Info("backup_exporter.main.starting_application")
	startErr := application.Start()
	if startErr != nil {
		slog.Error("backup_exporter.main.application_start_error", slog.String("error", errors.Details(startErr)))
	} else {
		slog.Info("backup_exporter.main.application_started_successfully")
	}

}

func initSignals(application *app.App) {
	slog.Info("backup_exporter.main.initializing_stop_signals", slog.String("main", "initializing_stop_signals"))
	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch)

	go func() {
		for {
			s := <-sigch
			handleSignals(s, application)
		}
	}()
}

func handleSignals(signal os.Signal, application *app.App) {
	if signal == syscall.SIGTERM || signal == syscall.SIGINT || signal == syscall.SIGKILL {
		err := application.Stop()
		if err != nil {
			return
		}
		slog.Info(
			"backup_exporter.main.received_kill_signal",
			slog.String(
				"signal",
				signal.String(),
			),
			slog.String(
				"status",
				"service gracefully stopped",
			),
		)
		os.Exit(0)
	}
}
