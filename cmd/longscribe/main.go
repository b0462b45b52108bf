package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"longscribe/internal/app"
	"longscribe/internal/config"
	"longscribe/internal/logger"
)

// cliOptions carries the parsed command line state into runApplication
type cliOptions struct {
	input      string
	output     string
	watchDir   string
	configPath string
	overrides  map[string]interface{}
}

// main is the application entry point and orchestrator setup
func main() {
	// Parse command line flags
	var (
		helpFlag      = flag.Bool("help", false, "Show help message")
		versionFlag   = flag.Bool("version", false, "Show version information")
		inputFlag     = flag.String("input", "", "Media file to transcribe")
		outputFlag    = flag.String("output", "", "Transcript output path (default: input path with .txt)")
		watchFlag     = flag.String("watch", "", "Directory to watch for media files")
		configFlag    = flag.String("config", "", "Path to configuration file")
		taskFlag      = flag.String("task", "", "Recognition task: transcribe or translate")
		languageFlag  = flag.String("language", "", "Spoken language hint, or auto")
		modelFlag     = flag.String("model", "", "Whisper model name, e.g. tiny, base, small, medium, large-v3")
		backendFlag   = flag.String("backend", "", "Recognition backend: local or remote")
		remoteURLFlag = flag.String("remote-url", "", "Remote transcription endpoint URL")
		chunkSecFlag  = flag.Int("chunk-sec", 0, "Window duration in seconds")
	)
	flag.Parse()

	if *helpFlag {
		printHelp()
		os.Exit(0)
	}

	if *versionFlag {
		printVersion()
		os.Exit(0)
	}

	// Collect configuration overrides for flags that were explicitly set
	overrides := make(map[string]interface{})
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "task":
			overrides["transcription.task"] = *taskFlag
		case "language":
			overrides["transcription.language"] = *languageFlag
		case "chunk-sec":
			overrides["transcription.chunk_duration_sec"] = *chunkSecFlag
		case "model":
			overrides["whisper.model"] = *modelFlag
		case "backend":
			overrides["backend.mode"] = *backendFlag
		case "remote-url":
			overrides["remote.url"] = *remoteURLFlag
		case "watch":
			overrides["watch.dir"] = *watchFlag
		}
	})

	opts := cliOptions{
		input:      *inputFlag,
		output:     *outputFlag,
		watchDir:   *watchFlag,
		configPath: *configFlag,
		overrides:  overrides,
	}

	// Run the main application logic
	if err := runApplication(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Application error: %v\n", err)
		os.Exit(1)
	}
}

// runApplication contains the core application logic that can be tested
func runApplication(opts cliOptions) error {
	cfg, err := loadConfiguration(opts)
	if err != nil {
		return err
	}

	// Create structured logger for main
	zapLogger := logger.NewLoggerWithDebug(cfg.GetDebugMode())
	defer zapLogger.Sync()

	// Log application startup
	zapLogger.Info("Longscribe starting up",
		zap.String("component", "main"),
		zap.String("version", "1.0"))

	if opts.input != "" && opts.watchDir != "" {
		return fmt.Errorf("cannot combine -input and -watch, pick one mode")
	}

	// Create application instance using orchestrator
	application, err := app.NewApplicationWithConfig(cfg, zapLogger)
	if err != nil {
		zapLogger.Error("Failed to create application",
			zap.Error(err),
			zap.String("component", "main"))
		return fmt.Errorf("failed to create application: %w", err)
	}

	// Set up context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start signal handler goroutine
	go func() {
		sig := <-sigChan
		zapLogger.Info("Received shutdown signal",
			zap.String("signal", sig.String()),
			zap.String("component", "main"))
		cancel()
	}()

	// Run the selected mode
	var runErr error
	switch {
	case opts.input != "":
		runErr = application.RunFile(ctx, opts.input, opts.output)
	case cfg.GetWatchDir() != "":
		runErr = application.RunWatch(ctx)
	default:
		runErr = fmt.Errorf("nothing to do: pass -input FILE or -watch DIR")
	}

	if runErr != nil {
		zapLogger.Error("Application runtime error",
			zap.Error(runErr),
			zap.String("component", "main"))
		runErr = fmt.Errorf("application runtime error: %w", runErr)
	}

	// Perform explicit shutdown
	if err := application.Shutdown(); err != nil {
		zapLogger.Error("Error during application shutdown",
			zap.Error(err),
			zap.String("component", "main"))
		if runErr == nil {
			runErr = fmt.Errorf("application shutdown error: %w", err)
		}
	}

	if runErr == nil {
		zapLogger.Info("Longscribe stopped successfully",
			zap.String("component", "main"))
	}
	return runErr
}

// loadConfiguration builds the configuration from the -config flag, the
// CONFIG_PATH environment variable, or the environment, then applies
// command line overrides on top
func loadConfiguration(opts cliOptions) (*config.Configuration, error) {
	var cfg *config.Configuration
	var err error

	configPath := opts.configPath
	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}

	if configPath != "" {
		cfg, err = config.NewConfigurationFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file %s: %w", configPath, err)
		}
	} else {
		cfg, err = config.NewConfigurationFromEnv()
		if err != nil {
			return nil, fmt.Errorf("failed to load config from environment: %w", err)
		}
	}

	for key, value := range opts.overrides {
		cfg.Override(key, value)
	}

	return cfg, nil
}

// printHelp displays command line usage information
func printHelp() {
	fmt.Println("Longscribe - Chunked Long-Form Media Transcription")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("    longscribe [OPTIONS]")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("    -input FILE      Media file to transcribe")
	fmt.Println("    -output FILE     Transcript output path (default: input path with .txt)")
	fmt.Println("    -watch DIR       Watch a directory and transcribe files dropped into it")
	fmt.Println("    -task TASK       Recognition task: transcribe or translate")
	fmt.Println("    -language LANG   Spoken language hint, or auto")
	fmt.Println("    -model NAME      Whisper model name, e.g. tiny, base, small, medium, large-v3")
	fmt.Println("    -backend MODE    Recognition backend: local or remote")
	fmt.Println("    -remote-url URL  Remote transcription endpoint URL")
	fmt.Println("    -chunk-sec N     Window duration in seconds")
	fmt.Println("    -config FILE     Path to configuration file")
	fmt.Println("    -help            Show this help message")
	fmt.Println("    -version         Show version information")
	fmt.Println()
	fmt.Println("CONFIGURATION:")
	fmt.Println("    Configuration is loaded from the -config file, the file named by")
	fmt.Println("    CONFIG_PATH, or LONGSCRIBE_* environment variables.")
	fmt.Println("    See config.example.yaml for available options.")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("    longscribe -input lecture.mp4                 # Transcript next to the input")
	fmt.Println("    longscribe -input ep01.mp3 -task translate    # Translate to English")
	fmt.Println("    longscribe -watch ./incoming                  # Transcribe new files as they land")
	fmt.Println("    longscribe -input talk.wav -backend remote -remote-url http://gpu-box:9000/v1/audio/transcriptions")
}

// printVersion displays version and build information
func printVersion() {
	fmt.Println("Longscribe")
	fmt.Println("Version: 1.0")
	fmt.Println("Build: Chunked Transcription Orchestrator")
	fmt.Println("Architecture: Go 1.24 + FFmpeg + Whisper.cpp")
}
