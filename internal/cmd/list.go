package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/tailzip/internal"
	"github.com/nguyengg/tailzip/internal/config"
	"github.com/nguyengg/tailzip/z"
)

type List struct {
	Args struct {
		Blob flags.Filename `positional-arg-name:"blob" description:"the local file or S3 URI with an embedded archive; defaults to this executable"`
	} `positional-args:"yes"`

	logger *log.Logger
	stdout io.Writer
}

func (c *List) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer stop()

	if _, err := config.Load(ctx); err != nil {
		return fmt.Errorf("load config error: %w", err)
	}

	if c.stdout == nil {
		c.stdout = os.Stdout
	}

	blob, err := orSelf(string(c.Args.Blob))
	if err != nil {
		return &Error{ExitIO, fmt.Sprintf("Unable to open data file (%s).", c.Args.Blob), err}
	}

	c.logger = internal.NewLogger("list", blob)

	if err = c.list(ctx, blob); err != nil {
		logCause(c.logger, err)
	}

	return err
}

func (c *List) list(ctx context.Context, blob string) error {
	src, _, err := openBlob(ctx, blob)
	if err != nil {
		return &Error{ExitIO, fmt.Sprintf("Unable to open data file (%s).", blob), err}
	}
	defer src.Close()

	a, err := z.Open(src)
	if err != nil {
		return openError(blob, err)
	}

	var (
		n     int
		total uint64
	)
	for fh, err := range a.Entries() {
		if err != nil {
			return lookupError(blob, "", err)
		}

		method := "stored"
		if fh.Method != z.Store {
			method = fmt.Sprintf("method %d", fh.Method)
		}

		if _, err = fmt.Fprintf(c.stdout, "%10s  %-9s  0x%08x  %s  %s\n",
			humanize.IBytes(fh.UncompressedSize64),
			method,
			fh.Offset,
			fh.Modified.Format("2006-01-02 15:04"),
			fh.Name); err != nil {
			return &Error{ExitIO, "Error writing content", err}
		}

		n++
		total += fh.UncompressedSize64
	}

	c.logger.Printf("%d/%d files, %s total, central directory at 0x%08x", n, a.Count, humanize.IBytes(total), a.CDOffset)
	return nil
}
