package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starling/clipnote/internal"
	"github.com/starling/clipnote/internal/indexstore"
	"github.com/starling/clipnote/internal/mcpserver"
	"github.com/starling/clipnote/internal/noteservice"
	"github.com/starling/clipnote/internal/storage"
	pkgconfig "github.com/starling/clipnote/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if key := os.Getenv("DASHSCOPE_API_KEY"); key != "" && cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = key
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

// mcpRun serves the note tools over stdio for MCP clients. The HTTP
// server and the clipboard monitor stay off in this mode.
func mcpRun(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Store.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := os.MkdirAll(cfg.Store.NotesPath(), 0o755); err != nil {
		return fmt.Errorf("create notes dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Store.NotesPath())
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	svc := noteservice.NewService(store, indexstore.New(cfg.Store.IndexPath()))

	return mcpserver.New(svc).ServeStdio()
}

func main() {
	configFlag := &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}

	cmd := &cli.Command{
		Name:   "clipnote",
		Usage:  "AI-assisted note capture: classify, organize, and store clipboard and pasted content as Markdown",
		Action: serve,
		Flags:  []cli.Flag{configFlag},
		Commands: []*cli.Command{
			{
				Name:   "mcp",
				Usage:  "Serve note tools over stdio for MCP clients",
				Action: mcpRun,
				Flags:  []cli.Flag{configFlag},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
