package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-yolo-ffi/assets"
	"github.com/nvr-ai/go-yolo-ffi/benchmark"
	"github.com/nvr-ai/go-yolo-ffi/config"
	"github.com/nvr-ai/go-yolo-ffi/detector"
	"github.com/nvr-ai/go-yolo-ffi/inference/detectors"
	"github.com/nvr-ai/go-yolo-ffi/logging"
	"github.com/nvr-ai/go-yolo-ffi/metrics"
	"github.com/nvr-ai/go-yolo-ffi/models"
	"github.com/nvr-ai/go-yolo-ffi/util"
)

const (
	flagConfig = "config"
	flagDebug  = "debug"
	flagImage  = "image"
	flagDir    = "dir"
	flagConf   = "conf"
	flagIoU    = "iou"
	flagIters  = "iterations"
	flagWarmup = "warmup"
	flagStats  = "metrics"
)

// newApp builds the CLI. extra options are appended when a model is created.
func newApp(out io.Writer, extra ...detector.Option) *cli.App {
	var (
		cfg    config.Config
		logger *zap.Logger
	)

	return &cli.App{
		Name:      "yolo-detect",
		Usage:     "run the embedded YOLOv8 detector on image files",
		Writer:    out,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			var err error
			cfg = config.Default()
			if path := c.String(flagConfig); path != "" {
				if cfg, err = config.Load(path); err != nil {
					return err
				}
			}
			if c.Bool(flagDebug) {
				cfg.Logging = logging.Config{Level: "debug", Development: true}
			}
			logger, err = logging.New(cfg.Logging)
			return err
		},
		After: func(c *cli.Context) error {
			if logger != nil {
				_ = logger.Sync()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "detect",
				Usage: "print detections for an image or a directory of images as JSON",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagImage, Aliases: []string{"i"}, Usage: "image `FILE`"},
					&cli.StringFlag{Name: flagDir, Aliases: []string{"d"}, Usage: "directory of images"},
					&cli.Float64Flag{Name: flagConf, Value: 0.25, Usage: "confidence threshold"},
					&cli.Float64Flag{Name: flagIoU, Value: 0.45, Usage: "NMS IoU threshold"},
				},
				Action: func(c *cli.Context) error {
					files, err := inputFiles(c.String(flagImage), c.String(flagDir))
					if err != nil {
						return err
					}

					m, err := newModel(cfg, logger, extra)
					if err != nil {
						return err
					}
					defer m.Close()

					conf, iou := float32(c.Float64(flagConf)), float32(c.Float64(flagIoU))
					for _, f := range files {
						out, err := m.Run(f.Data, conf, iou)
						if err != nil {
							return errors.Wrap(err, f.Path)
						}
						if len(files) == 1 {
							fmt.Fprintln(c.App.Writer, out)
							continue
						}
						fmt.Fprintf(c.App.Writer, "%s\t%s\n", f.Path, out)
					}
					return nil
				},
			},
			{
				Name:  "bench",
				Usage: "measure detection latency over an image or a directory of images",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagImage, Aliases: []string{"i"}, Usage: "image `FILE`"},
					&cli.StringFlag{Name: flagDir, Aliases: []string{"d"}, Usage: "directory of images"},
					&cli.Float64Flag{Name: flagConf, Value: 0.25, Usage: "confidence threshold"},
					&cli.Float64Flag{Name: flagIoU, Value: 0.45, Usage: "NMS IoU threshold"},
					&cli.IntFlag{Name: flagIters, Value: 100, Usage: "timed runs"},
					&cli.IntFlag{Name: flagWarmup, Value: 5, Usage: "untimed runs before measuring"},
					&cli.BoolFlag{Name: flagStats, Usage: "print the model's Prometheus counters after the run"},
				},
				Action: func(c *cli.Context) error {
					files, err := inputFiles(c.String(flagImage), c.String(flagDir))
					if err != nil {
						return err
					}
					images := make([][]byte, len(files))
					for i, f := range files {
						images[i] = f.Data
					}

					reg := prometheus.NewRegistry()
					opts := append([]detector.Option{detector.WithMetrics(metrics.MustNew(reg))}, extra...)
					m, err := newModel(cfg, logging.OrNop(nil), opts)
					if err != nil {
						return err
					}
					defer m.Close()

					perf, err := benchmark.RunScenario(c.Context, m, images, benchmark.Scenario{
						Name:       "yolov8n",
						Iterations: c.Int(flagIters),
						WarmupRuns: c.Int(flagWarmup),
						Confidence: float32(c.Float64(flagConf)),
						IoU:        float32(c.Float64(flagIoU)),
					})
					if err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, perf)
					if !c.Bool(flagStats) {
						return nil
					}
					text, err := metrics.Render(reg)
					if err != nil {
						return err
					}
					fmt.Fprint(c.App.Writer, text)
					return nil
				},
			},
			{
				Name:  "sizes",
				Usage: "print the YOLOv8 variants with their scaling multiples and weight files",
				Action: func(c *cli.Context) error {
					w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
					fmt.Fprintln(w, "SIZE\tMODEL\tDEPTH\tWIDTH\tRATIO\tFILTERS\tWEIGHTS\tEMBEDDED")
					for _, size := range models.Sizes() {
						_, mult, err := models.ParseSize(string(size))
						if err != nil {
							return err
						}
						c1, c2, c3 := mult.Filters()
						fmt.Fprintf(w, "%s\t%s\t%.2f\t%.2f\t%.1f\t%d/%d/%d\t%s\t%t\n",
							string(size), size, mult.Depth, mult.Width, mult.Ratio, c1, c2, c3,
							assets.WeightsFile(size), assets.Embedded(size))
					}
					return w.Flush()
				},
			},
			{
				Name:  "classes",
				Usage: "print the class table, one index and name per line",
				Action: func(c *cli.Context) error {
					for _, class := range models.YOLOClasses.Classes {
						fmt.Fprintf(c.App.Writer, "%d\t%s\n", class.Index, class.Name)
					}
					return nil
				},
			},
		},
	}
}

func newModel(cfg config.Config, logger *zap.Logger, extra []detector.Option) (*detector.Model, error) {
	opts := append([]detector.Option{
		detector.WithLoader(detectors.NewLoader(cfg.DetectorConfig())),
		detector.WithLogger(logger),
	}, extra...)
	return detector.New(opts...)
}

func inputFiles(image, dir string) ([]util.ImageFile, error) {
	switch {
	case image != "" && dir != "":
		return nil, errors.New("use either --image or --dir, not both")
	case image != "":
		data, err := os.ReadFile(image)
		if err != nil {
			return nil, err
		}
		return []util.ImageFile{{Path: image, Data: data, Frame: -1}}, nil
	case dir != "":
		files, err := util.LoadDirectoryImageFiles(dir)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			return nil, errors.Errorf("no images in %s", dir)
		}
		return files, nil
	}
	return nil, errors.New("one of --image or --dir is required")
}
