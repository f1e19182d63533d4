package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/tailzip/internal"
	"github.com/nguyengg/tailzip/internal/config"
	"github.com/nguyengg/tailzip/stub"
	"github.com/nguyengg/tailzip/z"
	"golang.org/x/time/rate"
)

type Replace struct {
	Args struct {
		Zip    flags.Filename `positional-arg-name:"zip" description:"the local file or S3 URI of the stored-only .zip to embed" required:"yes"`
		Output flags.Filename `positional-arg-name:"output" description:"the local file or S3 URI to write the combined blob to" required:"yes"`
	} `positional-args:"yes" required:"yes"`
	Prefix     flags.Filename `long:"prefix" description:"the local file or S3 URI of the prefix blob; defaults to this executable"`
	PrefixSize string         `long:"prefix-size" choice:"dos" choice:"raw" choice:"embedded" description:"how to determine the number of prefix bytes to keep; defaults to [replace] prefix-size from .tailzip, or embedded"`
	NoProgress bool           `long:"no-progress" description:"do not render a progress bar"`

	logger *log.Logger
}

func (c *Replace) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer stop()

	if _, err := config.Load(ctx); err != nil {
		return fmt.Errorf("load config error: %w", err)
	}

	if c.PrefixSize == "" {
		c.PrefixSize = config.ForReplace().PrefixSize
	}
	sizer, err := stub.Parse(c.PrefixSize)
	if err != nil {
		return err
	}

	prefix, err := orSelf(string(c.Prefix))
	if err != nil {
		return &Error{ExitIO, fmt.Sprintf("Unable to open data file (%s).", c.Prefix), err}
	}

	c.logger = internal.NewLogger("replace", string(c.Args.Output))

	if err = c.replace(ctx, prefix, sizer); err != nil {
		logCause(c.logger, err)
	}

	return err
}

func (c *Replace) replace(ctx context.Context, prefix string, sizer stub.Sizer) error {
	zipName, output := string(c.Args.Zip), string(c.Args.Output)

	pre, _, err := openBlob(ctx, prefix)
	if err != nil {
		return &Error{ExitIO, fmt.Sprintf("Unable to open data file (%s).", prefix), err}
	}
	defer pre.Close()

	prefixSize, err := sizer(pre)
	if err != nil {
		return &Error{ExitIO, fmt.Sprintf("Error reading from file: %s", prefix), err}
	}

	c.logger.Printf("Reading %s", zipName)
	src, srcSize, err := openBlob(ctx, zipName)
	if err != nil {
		return &Error{ExitIO, fmt.Sprintf("Unable to open zip file (%s).", zipName), err}
	}
	defer src.Close()

	c.logger.Printf("Creating %s", output)

	var (
		res       z.SpliceResult
		sometimes = rate.Sometimes{First: 1, Interval: 5 * time.Second}
		records   = map[z.Signature]int{}
	)
	if err = writeBlob(ctx, c.logger, output, func(w io.Writer) (err error) {
		if !c.NoProgress {
			bar := internal.DefaultBytes(prefixSize+srcSize, output)
			defer bar.Close()
			w = io.MultiWriter(w, bar)
		}

		res, err = z.Splice(w, ctxReader{ctx, pre}, prefixSize, ctxReader{ctx, src}, func(opts *z.SpliceOptions) {
			opts.BufferSize = 64 * 1024
			opts.OnRecord = func(sig z.Signature, size int64) {
				records[sig]++
				sometimes.Do(func() {
					c.logger.Printf("copied %s (%s)", sig, humanize.IBytes(uint64(size)))
				})
			}
		})
		if err != nil {
			return spliceError(err)
		}

		return nil
	}); err != nil {
		var e *Error
		if errors.As(err, &e) {
			return err
		}

		return &Error{ExitIO, fmt.Sprintf("Unable to open output file (%s).", output), err}
	}

	c.logger.Printf("kept %s of %s (%s), embedded %d files from %s",
		humanize.IBytes(uint64(res.PrefixSize)), prefix, c.PrefixSize,
		records[z.LocalFileSignature], humanize.IBytes(uint64(srcSize)))
	c.logger.Printf("Write complete. Wrote %s to %s", humanize.IBytes(uint64(res.Written)), output)
	return nil
}
