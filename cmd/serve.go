package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/mermaid-studio/internal/api"
	"github.com/ziadkadry99/mermaid-studio/internal/server"
	"github.com/ziadkadry99/mermaid-studio/internal/watch"
)

var (
	servePort      int
	serveHost      string
	serveAllowAll  bool
	serveWatchFile string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the diagram workspace web server",
	Long: `Starts the HTTP workspace: the editor page, the REST API, the live
websocket and the stateless /api/generate-diagram backend endpoint. With
--watch, edits to a file on disk replace the document as they are saved.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := setupLogging(cfg)

		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}
		if cmd.Flags().Changed("host") {
			cfg.Server.Host = serveHost
		}

		st, err := buildStack(cfg, logger)
		if err != nil {
			return err
		}
		defer st.Close()

		ws := newWorkspace(cfg, st, logger)
		defer ws.Close()

		srv := server.New(server.Config{
			Host:        cfg.Server.Host,
			Port:        cfg.Server.Port,
			CORSOrigins: cfg.Server.CORSOrigins,
			AllowAll:    serveAllowAll,
			Logger:      logger,
		}, st.cache)
		handlers := api.New(ws, st.assistant, logger)
		handlers.SetOriginCheck(srv.OriginAllowed)
		handlers.RegisterRoutes(srv.Router())

		// Graceful shutdown.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if serveWatchFile != "" {
			w, err := watch.New(serveWatchFile, func(src string) { ws.Edit(src) }, logger)
			if err != nil {
				return err
			}
			defer w.Close()
			go w.Run(ctx)
			logger.Info("watching file", "path", w.Path())
		}

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		fmt.Fprintf(os.Stderr, "mstudio %s serving on http://%s\n", Version, srv.Addr())
		fmt.Fprintf(os.Stderr, "  Assistant: %s (%s)\n", cfg.Assistant.Provider, cfg.Assistant.Model)
		fmt.Fprintf(os.Stderr, "  Renderer: %s\n", st.engine.Name())

		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "port to listen on (overrides server.port)")
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "interface to bind (overrides server.host)")
	serveCmd.Flags().BoolVar(&serveAllowAll, "allow-all-origins", false, "allow cross-origin requests from anywhere (dev mode)")
	serveCmd.Flags().StringVar(&serveWatchFile, "watch", "", "load edits to this diagram file into the workspace")
	rootCmd.AddCommand(serveCmd)
}
