package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/meigma/far"
)

func cmdList(archive string, logger *slog.Logger) error {
	r, err := far.OpenFile(archive, far.WithLogger(logger))
	if err != nil {
		return err
	}
	defer r.Close()

	for entry := range r.List() {
		fmt.Printf("%s\t%d\n", entry.Path, entry.DataLength)
	}
	return nil
}

func cmdCat(archive, path string, logger *slog.Logger) error {
	r, err := far.OpenFile(archive, far.WithLogger(logger))
	if err != nil {
		return err
	}
	defer r.Close()

	f, err := r.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(os.Stdout, f)
	return err
}

func cmdExtract(archive, dest string, workers int, logger *slog.Logger) error {
	r, err := far.OpenFile(archive, far.WithLogger(logger))
	if err != nil {
		return err
	}
	defer r.Close()

	if workers < 1 {
		workers = 1
	}

	var group errgroup.Group
	group.SetLimit(workers)
	for entry := range r.List() {
		group.Go(func() error {
			target := filepath.Join(dest, filepath.FromSlash(entry.Path))
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			src, err := r.OpenEntry(entry.Path)
			if err != nil {
				return err
			}
			f := src.Open()
			defer f.Close()
			out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, f); err != nil {
				out.Close()
				return fmt.Errorf("extract %s: %w", entry.Path, err)
			}
			logger.Debug("extracted entry", "path", entry.Path, "size", entry.DataLength)
			return out.Close()
		})
	}
	return group.Wait()
}

func cmdCreate(archive, dir string, logger *slog.Logger) error {
	out, err := os.OpenFile(archive, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	if err := far.WriteFS(out, os.DirFS(dir)); err != nil {
		out.Close()
		os.Remove(archive)
		return err
	}
	logger.Debug("wrote archive", "path", archive)
	return out.Close()
}
