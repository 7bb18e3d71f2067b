package main

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/puyokura/odysseychat/persona"
)

const logPath = "logs/server.log"

var errStop = errors.New("stopped from console")

var (
	configFile string
	port       string
	debug      bool
	noConsole  bool
)

var rootCmd = &cobra.Command{
	Use:   "odyssey-server",
	Short: "Odyssey Chat broker",
	Long: `Runs the websocket broker for Odyssey Chat.

Clients join on /ws. Messages that mention a persona with @Name are
answered by the Ark chat model when ARK credentials are set, and by a
canned reply otherwise. Facts are served on /api/facts.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().StringVar(&configFile, "config", "server_config.json", "path to configuration file")
	rootCmd.Flags().StringVar(&port, "port", "", "listen port (overrides the config file)")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "debug logging")
	rootCmd.Flags().BoolVar(&noConsole, "no-console", false, "do not read operator commands from stdin")
}

func newLogger(debug bool) (*zap.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, err
	}
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{"stdout", logPath}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build()
}

// compressLog archives source into dir as logs-<timestamp>.tar.gz.
func compressLog(source, dir string) (string, error) {
	timestamp := time.Now().Format("20060102-150405")
	target := filepath.Join(dir, fmt.Sprintf("logs-%s.tar.gz", timestamp))

	file, err := os.Open(source)
	if err != nil {
		return "", fmt.Errorf("open log for compression: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("stat log file: %w", err)
	}
	header, err := tar.FileInfoHeader(info, info.Name())
	if err != nil {
		return "", fmt.Errorf("create tar header: %w", err)
	}
	header.Name = filepath.Base(source)

	outFile, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create compressed log file: %w", err)
	}
	defer outFile.Close()

	gw := gzip.NewWriter(outFile)
	tw := tar.NewWriter(gw)
	if err := tw.WriteHeader(header); err != nil {
		return "", fmt.Errorf("write tar header: %w", err)
	}
	if _, err := io.Copy(tw, file); err != nil {
		return "", fmt.Errorf("compress log: %w", err)
	}
	if err := tw.Close(); err != nil {
		return "", err
	}
	if err := gw.Close(); err != nil {
		return "", err
	}
	return target, nil
}

func newResponder(ctx context.Context, config *Config, log *zap.Logger) Responder {
	if !config.AIEnabled() {
		log.Info("ark credentials not configured, personas use canned replies")
		return CannedResponder{}
	}
	r, err := NewArkResponder(ctx, config)
	if err != nil {
		log.Warn("failed to initialize AI responder, continuing with canned replies", zap.Error(err))
		return CannedResponder{}
	}
	log.Info("AI responder initialized")
	return r
}

func run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := newLogger(debug)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file, using system environment only", zap.Error(err))
	}

	config := NewConfig(configFile)
	if err := config.Load(); err != nil {
		logger.Warn("error loading config", zap.Error(err))
	}
	if port != "" {
		config.Port = port
	}

	store, err := NewStore(config.DatabasePath)
	if err != nil {
		return fmt.Errorf("open store %s: %w", config.DatabasePath, err)
	}
	defer store.Close()

	personas := persona.NewMemoryDirectory(persona.Seed())
	hub := NewHub(store, config, personas, newResponder(ctx, config, logger), logger)

	server := &http.Server{
		Addr:              config.Addr(),
		Handler:           NewRouter(hub, store, logger),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		logger.Info("server started", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen and serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if !noConsole {
		g.Go(func() error {
			return NewConsole(hub, config, os.Stdout).Run(gctx, os.Stdin)
		})
	}

	err = g.Wait()
	logger.Info("shutting down server")
	_ = logger.Sync()

	if target, cerr := compressLog(logPath, filepath.Dir(logPath)); cerr != nil {
		fmt.Fprintln(os.Stderr, cerr)
	} else {
		fmt.Println("Log compressed to", target)
		os.Remove(logPath)
	}

	if errors.Is(err, errStop) {
		return nil
	}
	return err
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
