package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/vidfetch/vidfetch"
	"github.com/vidfetch/vidfetch/async"
	"github.com/vidfetch/vidfetch/extractors/youtube"
	"github.com/vidfetch/vidfetch/extractors/ytdlp"
	"github.com/vidfetch/vidfetch/internal/httpapi"
	"github.com/vidfetch/vidfetch/workspace"
)

const shutdownTimeout = 10 * time.Second

func main() {
	app := &cli.App{
		Name:  "vidfetch",
		Usage: "web service for inspecting and downloading video formats",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "listen",
				Value:   ":8080",
				Usage:   "listen on `ADDR`",
				EnvVars: []string{"VIDFETCH_LISTEN"},
			},
			&cli.StringFlag{
				Name:    "workspace",
				Value:   "temp_downloads",
				Usage:   "scratch `DIR` for in-flight downloads (wiped at startup)",
				EnvVars: []string{"VIDFETCH_WORKSPACE"},
			},
			&cli.StringFlag{
				Name:    "ytdlp-bin",
				Value:   ytdlp.DefaultBinary,
				Usage:   "yt-dlp `BINARY` to invoke",
				EnvVars: []string{"VIDFETCH_YTDLP_BIN"},
			},
			&cli.DurationFlag{
				Name:    "fetch-timeout",
				Value:   0,
				Usage:   "bound each media fetch by `DURATION` (0 = unbounded)",
				EnvVars: []string{"VIDFETCH_FETCH_TIMEOUT"},
			},
			&cli.BoolFlag{
				Name:  "dev",
				Usage: "use development logging",
			},
		},
		Action:          run,
		HideHelpCommand: true,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	logger, err := newLogger(c.Bool("dev"))
	if err != nil {
		return err
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	zap.RedirectStdLog(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ws := workspace.New(c.String("workspace"), logger)
	if err := ws.Init(); err != nil {
		return err
	}

	registry := &vidfetch.Registry{}
	registry.MustAdd(youtube.New())
	registry.MustAdd(
		ytdlp.Config{BinaryPath: c.String("ytdlp-bin")}.Backend().WithPriority(vidfetch.PriorityLowest),
	)

	info := vidfetch.NewInfoService(registry, logger)
	downloads := vidfetch.NewOrchestrator(registry, ws, logger,
		vidfetch.WithFetchTimeout(c.Duration("fetch-timeout")))
	server := httpapi.NewServer(info, downloads, c.String("listen"), logger)

	result := async.Run(server.Start)

	select {
	case err := <-result:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
