package main

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/puyokura/odysseychat/facts"
	"github.com/puyokura/odysseychat/persona"
)

var (
	configPath string
	username   string
	personaID  string
	serverURL  string
	factsURL   string
	logFile    string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "odyssey",
	Short: "Odyssey Chat terminal client",
	Long: `Odyssey Chat is a terminal chat client with AI personas.

Mention a persona with @Name to ask it a question. The client gives up
immediately when the server cannot be reached and returns to the login
screen.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd)
	},
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "odyssey.yaml", "path to the YAML config file")
	rootCmd.Flags().StringVarP(&username, "username", "u", "", "join immediately with this username")
	rootCmd.Flags().StringVarP(&personaID, "persona", "p", "", "persona sent with your messages")
	rootCmd.Flags().StringVar(&serverURL, "url", "", "websocket endpoint of the broker")
	rootCmd.Flags().StringVar(&factsURL, "facts-url", "", "base URL of the facts API")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "log file (the terminal is owned by the UI)")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "debug logging")
}

func run(cmd *cobra.Command) error {
	// A missing .env is fine.
	_ = godotenv.Load()

	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)

	logger, err := newFileLogger(cfg.LogFile, cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	dir := persona.NewMemoryDirectory(persona.Seed())
	if cfg.Persona != "" {
		if p, ok := dir.FindByID(cfg.Persona); ok {
			cfg.Persona = p.ID
		} else {
			logger.Warn("unknown persona in config", zap.String("persona", cfg.Persona))
			cfg.Persona = ""
		}
	}

	factsClient, err := facts.NewClient(cfg.FactsURL)
	if err != nil {
		return err
	}

	net := NewNetwork(cfg, factsClient, logger)
	defer net.Close()

	logger.Info("client starting",
		zap.String("url", cfg.URL),
		zap.String("facts_url", cfg.FactsURL))

	p := tea.NewProgram(initialModel(net, cfg, dir, logger), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("alas, there's been an error: %w", err)
	}
	return nil
}

func applyFlags(cmd *cobra.Command, cfg *Config) {
	flags := cmd.Flags()
	if flags.Changed("username") {
		cfg.Username = username
	}
	if flags.Changed("persona") {
		cfg.Persona = personaID
	}
	if flags.Changed("url") {
		cfg.URL = serverURL
	}
	if flags.Changed("facts-url") {
		cfg.FactsURL = factsURL
	}
	if flags.Changed("log-file") {
		cfg.LogFile = logFile
	}
	if flags.Changed("debug") {
		cfg.Debug = debug
	}
}

func newFileLogger(path string, verbose bool) (*zap.Logger, error) {
	if path == "" {
		return zap.NewNop(), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{path}
	config.ErrorOutputPaths = []string{path}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
