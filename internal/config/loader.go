package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-ini/ini"
)

// Name is the name of the configuration file that Loader looks for.
const Name = ".tailzip"

// Loader can be used for loading .tailzip configuration as well as overridden with default settings.
type Loader struct {
	// Profile is the AWS profile to use, taking precedence over the [aws] profile setting.
	Profile string

	cfg           *ini.File
	s3clientCache sync.Map
}

// Load will traverse the directory hierarchy upwards from the working directory to find the first ".tailzip" file
// available and load its contents into the Loader.
//
// The name of the .tailzip file is returned, or an empty string if there is none.
func (l *Loader) Load(ctx context.Context) (string, error) {
	cur, err := os.Getwd()
	if err != nil {
		return "", err
	}

	return l.LoadFrom(ctx, cur)
}

// LoadFrom is a variant of Load that starts looking from the given directory instead.
func (l *Loader) LoadFrom(ctx context.Context, dir string) (string, error) {
	cur := dir
	path := filepath.Join(cur, Name)

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		fi, err := os.Stat(path)
		if err == nil && !fi.IsDir() {
			break
		}

		if err == nil || os.IsNotExist(err) {
			parent := filepath.Dir(cur)

			if parent == cur || parent == "." {
				l.cfg = ini.Empty()
				return "", nil
			}

			path = filepath.Join(parent, Name)
			cur = parent
			continue
		}

		return "", err
	}

	cfg, err := ini.Load(path)
	if err != nil {
		l.cfg = ini.Empty()
		return path, err
	}

	l.cfg = cfg
	return path, nil
}

// LoadProfile is a convenient method to set Loader.Profile then call Load.
func (l *Loader) LoadProfile(ctx context.Context, profile string) (string, error) {
	l.Profile = profile
	return l.Load(ctx)
}

// DefaultLoader is the default Loader instance for package-level methods.
var DefaultLoader = &Loader{cfg: ini.Empty()}

// Load calls Loader.Load on the DefaultLoader instance.
func Load(ctx context.Context) (string, error) {
	return DefaultLoader.Load(ctx)
}

// LoadProfile calls Loader.LoadProfile on the DefaultLoader instance.
func LoadProfile(ctx context.Context, profile string) (string, error) {
	return DefaultLoader.LoadProfile(ctx, profile)
}
