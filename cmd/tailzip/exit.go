//go:build !windows

package main

import (
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/tailzip/internal/cmd"
)

func exit(err error) {
	if err != nil && !flags.WroteHelp(err) {
		os.Exit(cmd.ExitCode(err))
	}
}
