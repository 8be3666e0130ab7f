// Command yolo-fetch places build inputs that are not checked in: the model
// weights embedded by package assets and the images used by end-to-end tests.
// It is driven by go generate:
//
//	go generate ./assets ./detector
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-yolo-ffi/logging"
)

const (
	flagOut     = "out"
	flagURL     = "url"
	flagSHA256  = "sha256"
	flagExport  = "export"
	flagImgSize = "imgsz"
	flagForce   = "force"
	flagTimeout = "timeout"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "yolo-fetch:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "yolo-fetch",
		Usage: "download or export a file unless it is already present",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: flagOut, Required: true, Usage: "destination `FILE`"},
			&cli.StringFlag{Name: flagURL, EnvVars: []string{"YOLO_WEIGHTS_URL"}, Usage: "download from `URL`"},
			&cli.StringFlag{Name: flagSHA256, Usage: "expected hex sha256 of the download"},
			&cli.StringFlag{Name: flagExport, Usage: "ultralytics `MODEL` to export to ONNX when no URL is given"},
			&cli.IntFlag{Name: flagImgSize, Value: 640, Usage: "export input size"},
			&cli.BoolFlag{Name: flagForce, Usage: "replace an existing file"},
			&cli.DurationFlag{Name: flagTimeout, Value: 10 * time.Minute, Usage: "download timeout"},
		},
		Action: func(c *cli.Context) error {
			log, err := logging.New(logging.DefaultConfig())
			if err != nil {
				return err
			}
			defer log.Sync()

			f := &fetcher{
				client: resty.New().SetTimeout(c.Duration(flagTimeout)),
				log:    log,
			}
			return f.run(c, c.String(flagOut))
		},
	}
}

func (f *fetcher) run(c *cli.Context, out string) error {
	if _, err := os.Stat(out); err == nil && !c.Bool(flagForce) {
		f.log.Info("already present", zap.String("path", out))
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}

	switch {
	case c.String(flagURL) != "":
		return f.download(c.Context, c.String(flagURL), out, c.String(flagSHA256))
	case c.String(flagExport) != "":
		return f.export(c.Context, c.String(flagExport), out, c.Int(flagImgSize))
	}
	return errors.New("one of --url or --export is required")
}
