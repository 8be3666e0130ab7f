package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// exportCommand runs the ultralytics CLI in dir. Tests replace it.
var exportCommand = func(ctx context.Context, dir, model string, size int) error {
	cmd := exec.CommandContext(ctx, "yolo", "export",
		"model="+model, "format=onnx", "opset=17", "imgsz="+strconv.Itoa(size))
	cmd.Dir = dir
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	return errors.Wrap(cmd.Run(), "yolo export")
}

type fetcher struct {
	client *resty.Client
	log    *zap.Logger
}

// download writes the body at url to dst, replacing it only once the body
// is complete and matches sum (hex sha256, optional).
func (f *fetcher) download(ctx context.Context, url, dst, sum string) error {
	tmp := dst + ".part"
	defer os.Remove(tmp)

	resp, err := f.client.R().SetContext(ctx).SetOutput(tmp).Get(url)
	if err != nil {
		return errors.Wrapf(err, "failed to fetch %s", url)
	}
	if resp.IsError() {
		return errors.Errorf("failed to fetch %s: %s", url, resp.Status())
	}
	if err := verify(tmp, sum); err != nil {
		return err
	}
	f.log.Info("downloaded", zap.String("url", url), zap.String("path", dst), zap.Int64("bytes", resp.Size()))
	return os.Rename(tmp, dst)
}

// export converts model to ONNX in a scratch directory and moves the result
// to dst.
func (f *fetcher) export(ctx context.Context, model, dst string, size int) error {
	dir, err := os.MkdirTemp("", "yolo-export-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	if err := exportCommand(ctx, dir, model, size); err != nil {
		return err
	}
	out := filepath.Join(dir, strings.TrimSuffix(filepath.Base(model), filepath.Ext(model))+".onnx")
	if err := copyFile(out, dst); err != nil {
		return errors.Wrap(err, "export produced no model")
	}
	f.log.Info("exported", zap.String("model", model), zap.String("path", dst))
	return nil
}

func verify(path, sum string) error {
	if sum == "" {
		return nil
	}
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return err
	}
	if got := hex.EncodeToString(h.Sum(nil)); !strings.EqualFold(got, sum) {
		return errors.Errorf("checksum mismatch for %s: got %s, want %s", path, got, sum)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
