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

type Read struct {
	Args struct {
		Blob flags.Filename `positional-arg-name:"blob" description:"the local file or S3 URI with an embedded archive; defaults to this executable"`
	} `positional-args:"yes"`
	Entry string `short:"e" long:"entry" description:"name of the embedded file (case-insensitive); defaults to [read] entry from .tailzip, or config.ini"`
	Raw   bool   `long:"raw" description:"print only the content of the embedded file"`

	logger *log.Logger
	stdout io.Writer
}

func (c *Read) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer stop()

	if _, err := config.Load(ctx); err != nil {
		return fmt.Errorf("load config error: %w", err)
	}

	if c.Entry == "" {
		c.Entry = config.ForRead().Entry
	}
	if c.stdout == nil {
		c.stdout = os.Stdout
	}

	blob, err := orSelf(string(c.Args.Blob))
	if err != nil {
		return &Error{ExitIO, fmt.Sprintf("Unable to open data file (%s).", c.Args.Blob), err}
	}

	c.logger = internal.NewLogger("read", blob)

	if err = c.read(ctx, blob); err != nil {
		logCause(c.logger, err)
	}

	return err
}

func (c *Read) read(ctx context.Context, blob string) error {
	src, size, err := openBlob(ctx, blob)
	if err != nil {
		return &Error{ExitIO, fmt.Sprintf("Unable to open data file (%s).", blob), err}
	}
	defer src.Close()

	a, err := z.Open(src)
	if err != nil {
		return openError(blob, err)
	}

	c.logger.Printf("found %d embedded files in %s blob", a.Count, humanize.IBytes(uint64(size)))

	e, err := a.Lookup(c.Entry)
	if err != nil {
		return lookupError(blob, c.Entry, err)
	}

	if !c.Raw {
		if _, err = fmt.Fprintf(c.stdout, "%s has content:\n", c.Entry); err != nil {
			return &Error{ExitIO, "Error writing content", err}
		}
	}

	// Lookup leaves src at the first content byte.
	if _, err = z.CopyN(c.stdout, ctxReader{ctx, src}, e.Size); err != nil {
		return lookupError(blob, c.Entry, err)
	}

	if !c.Raw {
		if _, err = fmt.Fprintln(c.stdout); err != nil {
			return &Error{ExitIO, "Error writing content", err}
		}
	}

	return nil
}
