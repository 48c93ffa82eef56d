// far is a command-line tool for package archives.
//
// Usage:
//
//	far list <archive>
//	far cat <archive> <path>
//	far extract <archive> <dir>
//	far create <archive> <dir>
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("far", pflag.ContinueOnError)
	verbose := flags.BoolP("verbose", "v", false, "enable debug logging")
	workers := flags.Int("workers", 4, "parallel extraction workers")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: far [flags] <list|cat|extract|create> <archive> [args]\n\nFlags:\n%s", flags.FlagUsages())
	}
	if err := flags.Parse(args); err != nil {
		return err
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	rest := flags.Args()
	if len(rest) < 2 {
		flags.Usage()
		return fmt.Errorf("missing command or archive")
	}
	command, archive := rest[0], rest[1]

	switch command {
	case "list":
		return cmdList(archive, logger)
	case "cat":
		if len(rest) < 3 {
			return fmt.Errorf("cat: missing path")
		}
		return cmdCat(archive, rest[2], logger)
	case "extract":
		if len(rest) < 3 {
			return fmt.Errorf("extract: missing destination directory")
		}
		return cmdExtract(archive, rest[2], *workers, logger)
	case "create":
		if len(rest) < 3 {
			return fmt.Errorf("create: missing source directory")
		}
		return cmdCreate(archive, rest[2], logger)
	default:
		flags.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}
