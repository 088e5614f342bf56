package testutil

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
)

var loadOnce sync.Once

// LoadDotEnv loads the nearest ".env" found walking up from the working
// directory. Existing environment variables are not overridden. A missing
// file is not an error.
func LoadDotEnv() error {
	var errOut error
	loadOnce.Do(func() {
		path, err := findUpwards(".env")
		if err != nil {
			return
		}
		errOut = godotenv.Load(path)
	})
	return errOut
}

// RequireEnv skips the test unless every key is set.
func RequireEnv(t interface {
	Helper()
	Skipf(format string, args ...any)
}, keys ...string) {
	t.Helper()
	_ = LoadDotEnv()
	for _, k := range keys {
		if os.Getenv(k) == "" {
			t.Skipf("%s not set", k)
		}
	}
}

func findUpwards(name string) (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	dir := wd
	for {
		candidate := filepath.Join(dir, name)
		if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("not found")
		}
		dir = parent
	}
}
