package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Eran5102/Valuation-sub004/internal/config"
	"github.com/Eran5102/Valuation-sub004/internal/hybrid"
	"github.com/Eran5102/Valuation-sub004/internal/server"
	"github.com/Eran5102/Valuation-sub004/internal/waterfall"
	"github.com/Eran5102/Valuation-sub004/pkg/adapters"
	"github.com/Eran5102/Valuation-sub004/pkg/audit"
	"github.com/Eran5102/Valuation-sub004/pkg/constants"
	"github.com/Eran5102/Valuation-sub004/pkg/mathutil"
	"github.com/Eran5102/Valuation-sub004/pkg/output"
	"github.com/Eran5102/Valuation-sub004/pkg/validation"
	"github.com/shopspring/decimal"
)

// Version is stamped at build time.
var Version = "dev"

// initializeLogger creates a zap logger based on configuration and CLI override
func initializeLogger(loggingConfig config.LoggingConfig, logLevelOverride string) (*zap.Logger, error) {
	// Determine log level (CLI override takes precedence)
	level := loggingConfig.Level
	if logLevelOverride != "" {
		level = logLevelOverride
	}
	if level == "" {
		level = "info" // Default to info level
	}

	// Parse log level
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	// Determine output format
	format := loggingConfig.Format
	if format == "" {
		format = "json" // Default to JSON for production
	}

	// Configure encoder
	var config zap.Config
	switch format {
	case "console":
		config = zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zapLevel)
	case "json":
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zapLevel)
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}

	// Configure output file if specified
	if loggingConfig.OutputFile != "" {
		// Ensure the directory exists
		if dir := filepath.Dir(loggingConfig.OutputFile); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %v", dir, err)
			}
		}

		// Test if we can create/write to the file
		if file, err := os.OpenFile(loggingConfig.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %v", loggingConfig.OutputFile, err)
		} else {
			_ = file.Close()
		}

		config.OutputPaths = []string{loggingConfig.OutputFile}
		config.ErrorOutputPaths = []string{loggingConfig.OutputFile}
	}

	return config.Build()
}

func main() {
	// Process command line flags first to get config location
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, csv")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	auditExport := flag.String("audit-export", "", "path to write the audit trail (format from audit.format, default text)")
	serve := flag.Bool("serve", false, "run the HTTP API server instead of a one-shot analysis")
	listen := flag.String("listen", "", "listen address override for -serve")
	serverConfigLocation := flag.String("server-config", constants.DefaultServerConfigFile, "path to server configuration file")
	flag.Parse()

	if *serve {
		runServer(*serverConfigLocation, *listen, *logLevel)
		return
	}

	// Load the config file to get logging configuration
	conf, err := config.LoadConfiguration(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		return
	}

	// Initialize logging based on config and CLI override
	logger, err := initializeLogger(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Determine output format (CLI override takes precedence over config)
	outputFormat := conf.Output.Format
	if *outputFormatFlag != "" {
		outputFormat = *outputFormatFlag
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty // Default to pretty format
	}

	err = validation.ValidateOutputFormat(outputFormat)
	if err != nil {
		logger.Fatal(err.Error(),
			zap.String("op", "main"),
		)
	}

	auditFormat := conf.Audit.Format
	if auditFormat == "" {
		auditFormat = constants.AuditFormatText
	}
	auditFile := conf.Audit.File
	if *auditExport != "" {
		auditFile = *auditExport
	}
	if auditFile != "" {
		if err := validation.ValidateAuditFormat(auditFormat); err != nil {
			logger.Fatal(err.Error(),
				zap.String("op", "main"),
			)
		}
	}

	// Validate configuration and display any warnings
	warnings := conf.Validate()
	for _, warning := range warnings {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	// Build the domain snapshot from the config cap table.
	snapshot, err := adapters.SnapshotFromConfig(conf.CapTable)
	if err != nil {
		logger.Fatal("failed to build cap table snapshot",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	mathCtx := mathutil.NewContext()

	if conf.Hybrid != nil && len(conf.Hybrid.Scenarios) > 0 {
		orchestrator := hybrid.NewOrchestrator(logger, mathCtx)
		result, err := orchestrator.Run(context.Background(), hybrid.Request{
			Snapshot:       snapshot,
			Scenarios:      adapters.ScenariosFromConfig(conf.Hybrid),
			ValuationDate:  conf.Hybrid.ValuationDate,
			DiscountRate:   decimal.NewFromFloat(conf.Hybrid.DiscountRate),
			SolverStrategy: conf.Solver.Strategy,
		})
		if err != nil {
			logger.Fatal("failed to run hybrid valuation",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}

		switch outputFormat {
		case constants.OutputFormatPretty:
			output.PrettyFormatHybrid(result)
		case constants.OutputFormatCSV:
			fmt.Print(output.CsvStringHybrid(result))
		}
		exportAudit(logger, result.Trail, auditFile, auditFormat)
		return
	}

	engine := waterfall.NewEngine(logger, mathCtx, conf.Solver.Strategy)
	analysis, err := engine.Run(snapshot)
	if err != nil {
		logger.Fatal("failed to compute waterfall",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	// Handle output.
	switch outputFormat {
	case constants.OutputFormatPretty:
		output.PrettyFormat(analysis)
	case constants.OutputFormatCSV:
		output.CsvFormat(analysis)
	}
	exportAudit(logger, analysis.Trail, auditFile, auditFormat)
}

func exportAudit(logger *zap.Logger, trail *audit.Trail, path, exportFormat string) {
	if path == "" || trail == nil {
		return
	}
	if err := trail.WriteFile(path, exportFormat); err != nil {
		logger.Error("failed to export audit trail",
			zap.String("op", "main"),
			zap.String("path", path),
			zap.Error(err),
		)
		return
	}
	logger.Info("audit trail exported",
		zap.String("op", "main"),
		zap.String("path", path),
		zap.String("format", exportFormat),
	)
}

func runServer(configLocation, listenOverride, logLevelOverride string) {
	serverConfig, err := server.LoadConfig(configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load server configuration at %s\", \"error\": \"%v\"}\n", configLocation, err)
		return
	}
	if listenOverride != "" {
		serverConfig.Address = listenOverride
	}

	logger, err := initializeLogger(serverConfig.Logging, logLevelOverride)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, logger, serverConfig, Version); err != nil {
		logger.Fatal("server terminated",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}
}
