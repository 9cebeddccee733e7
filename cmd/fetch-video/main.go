package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/vidfetch/vidfetch"
	_ "github.com/vidfetch/vidfetch/extractors"
	"github.com/vidfetch/vidfetch/workspace"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	zap.RedirectStdLog(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = vidfetch.WithLogger(ctx, logger)

	app := &cli.App{
		Name:  "fetch-video",
		Usage: "download a single video",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "target",
				Value: ".",
				Usage: "save downloaded video to `DIR`",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "download format `ID` (default: best surfaced format)",
			},
		},
		Action: func(c *cli.Context) error {
			ws := workspace.New(filepath.Join(os.TempDir(), "fetch-video"), logger)
			if err := ws.Init(); err != nil {
				return err
			}
			for _, source := range c.Args().Slice() {
				if err := download(ctx, ws, source, c.String("format"), c.String("target")); err != nil {
					return err
				}
			}
			return nil
		},
		HideHelpCommand: true,
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		logger.Fatal(err.Error())
	}
}

func download(ctx context.Context, ws *workspace.Manager, source, formatID, target string) error {
	logger := vidfetch.Logger(ctx)
	sugar := logger.Sugar()
	sugar.Infof("Downloading from %s into %s", source, target)

	info := vidfetch.NewInfoService(&vidfetch.DefaultRegistry, logger)
	catalog, err := info.Resolve(ctx, source)
	if err != nil {
		return fmt.Errorf("resolve failed: %w", err)
	}
	if formatID == "" {
		if len(catalog.Formats) == 0 {
			return fmt.Errorf("no suitable formats found for %s", source)
		}
		formatID = catalog.Formats[0].FormatID
		sugar.Infof("Using best format %s (%s)", formatID, catalog.Formats[0].Resolution)
	}

	bar := progressbar.Default(100, "downloading")
	downloads := vidfetch.NewOrchestrator(&vidfetch.DefaultRegistry, ws, logger,
		vidfetch.WithProgressSink(vidfetch.ProgressFunc(func(percent float64) {
			_ = bar.Set(int(percent))
		})))

	artifact, err := downloads.Materialize(ctx, source, formatID)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	defer artifact.Close()

	targetPath := filepath.Join(target, artifact.Name)
	f, err := os.Create(targetPath)
	if err != nil {
		return fmt.Errorf("failed to create target file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, artifact); err != nil {
		return fmt.Errorf("failed to write target file: %w", err)
	}

	sugar.Infof("Download complete: %s", targetPath)
	return nil
}
