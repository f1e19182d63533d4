package cmd

import (
	"errors"

	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/tailzip/internal/config"
)

type Tailzip struct {
	Profile string  `short:"p" long:"profile" description:"override the AWS profile from .tailzip for s3:// blobs"`
	Read    Read    `command:"read" alias:"r" description:"print a file embedded in a blob (by default config.ini embedded in this executable)"`
	Replace Replace `command:"replace" alias:"rp" description:"splice a stored-only .zip after a prefix blob (by default this executable) and write the result"`
	List    List    `command:"list" alias:"ls" description:"list the files embedded in a blob"`

	// ReplaceSelf is the short form of "replace <zip> <output>".
	ReplaceSelf bool `short:"r" description:"same as replace: tailzip -r <zip> <output>"`
}

func NewParser(opts *Tailzip) (*flags.Parser, error) {
	p := flags.NewNamedParser("tailzip", flags.Default)
	if _, err := p.AddGroup("Global Options", "", opts); err != nil {
		return nil, err
	}

	p.SubcommandsOptional = true
	p.CommandHandler = func(command flags.Commander, args []string) error {
		config.DefaultLoader.Profile = opts.Profile
		if opts.ReplaceSelf {
			if command != nil {
				return errors.New("-r cannot be used with a command")
			}
			if len(args) != 2 {
				return errors.New("-r requires exactly 2 arguments: <zip> <output>")
			}

			opts.Replace.Args.Zip, opts.Replace.Args.Output = flags.Filename(args[0]), flags.Filename(args[1])
			return opts.Replace.Execute(nil)
		}
		if command == nil {
			// without a command, print the default file embedded in this executable.
			command = &opts.Read
		}

		return command.Execute(args)
	}

	return p, nil
}

// Run parses the command line and executes the chosen command, or "read" if there is none.
func Run() error {
	p, err := NewParser(&Tailzip{})
	if err != nil {
		return err
	}

	_, err = p.Parse()
	return err
}
