package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/quartzbi/quartz/internal/server"
	"github.com/quartzbi/quartz/internal/service"
	"github.com/quartzbi/quartz/internal/usage"
)

const banner = `
  ___  _   _   _   ___ _____ ____
 / _ \| | | | / \ | _ \_   _|_  /
| (_) | |_| |/ _ \|   / | |  / /
 \__\_\\___//_/ \_\_|_\ |_| /___|
`

func newServeCmd() *cobra.Command {
	var (
		port   int
		host   string
		dev    bool
		daemon bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Quartz workspace server",
		Long:  "Start the HTTP server that exposes the admin and workspace APIs for the configured data sources.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if daemon {
				return runServeDaemon()
			}
			return runServe(host, port, dev)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (verbose logging)")
	cmd.Flags().BoolVarP(&daemon, "daemon", "d", false, "Run the server in the background")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

// runServeDaemon re-executes the current binary detached from the terminal
// and records its PID so 'quartz status' and 'quartz stop' can find it.
func runServeDaemon() error {
	if pid, err := readPID(); err == nil && isProcessRunning(pid) {
		return fmt.Errorf("server already running (PID %d); use 'quartz stop' first", pid)
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	args := []string{"serve"}
	for _, a := range os.Args[1:] {
		if a != "--daemon" && a != "-d" && a != "serve" {
			args = append(args, a)
		}
	}

	logFile, err := os.OpenFile(logFilePath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	child := exec.Command(exe, args...)
	child.Stdout = logFile
	child.Stderr = logFile
	setSysProcAttr(child)

	if err := child.Start(); err != nil {
		return fmt.Errorf("start background server: %w", err)
	}
	if err := writePID(child.Process.Pid); err != nil {
		return fmt.Errorf("write PID file: %w", err)
	}

	fmt.Printf("Server started in background (PID %d)\n", child.Process.Pid)
	fmt.Printf("  Logs: %s\n", logFilePath())
	fmt.Println("  Use 'quartz status' to check health, 'quartz stop' to shut down.")
	return nil
}

func runServe(host string, port int, dev bool) error {
	fmt.Print(banner)
	fmt.Println()

	logLevel := slog.LevelInfo
	if dev {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	ctx := context.Background()

	// 1. Config store (SQLite under the data dir)
	store, err := openConfigStore()
	if err != nil {
		return fmt.Errorf("init config store: %w", err)
	}
	defer store.Close()
	logger.Info("config store initialized", "path", resolveDataDir())

	// 2. Connector registry with all drivers
	registry := newRegistry()

	// 3. Connect the active sources
	sources, err := store.ListSources(ctx)
	if err != nil {
		logger.Warn("failed to load sources from config", "error", err)
	}
	for i := range sources {
		src := &sources[i]
		if !src.IsActive {
			continue
		}
		if err := registry.Connect(src.Name, connectionConfig(src)); err != nil {
			logger.Error("failed to connect source", "source", src.Name, "error", err)
		} else {
			logger.Info("connected source", "source", src.Name, "driver", src.Driver)
		}
	}

	// 4. Services
	jwtSecret := viper.GetString("auth.jwt_secret")
	if jwtSecret == "" {
		jwtSecret = "quartz-dev-secret-change-me"
		logger.Warn("auth.jwt_secret not set; using development default")
	}
	authSvc := service.NewAuthService(store, jwtSecret)
	keySvc := service.NewKeyService(store)
	recorder := usage.NewRecorder(store, logger)

	// 5. First-run hint
	hasAdmin, err := store.HasAnyAdmin(ctx)
	if err != nil {
		logger.Warn("failed to check for admin", "error", err)
	}
	if !hasAdmin {
		logger.Warn("no admin account found - run: quartz admin create")
	}

	// 6. Build and start the HTTP server
	srvCfg := server.DefaultConfig()
	srvCfg.Host = host
	srvCfg.Port = port
	if origins := viper.GetStringSlice("server.cors.origins"); len(origins) > 0 {
		srvCfg.CORSOrigins = origins
	}

	srv := server.New(srvCfg, registry, store, authSvc, keySvc, recorder, logger)

	if err := writePID(os.Getpid()); err != nil {
		logger.Warn("failed to write PID file", "error", err)
	}
	defer removePID()

	fmt.Printf("→ Quartz %s\n", versionString())
	fmt.Printf("→ Listening on http://%s:%d\n", host, port)
	fmt.Printf("→ OpenAPI:    http://%s:%d/openapi.json\n", host, port)
	fmt.Printf("→ Health:     http://%s:%d/healthz\n", host, port)
	fmt.Printf("→ Connected sources: %d\n", len(registry.ListSources()))
	fmt.Println()

	return srv.ListenAndServe()
}
