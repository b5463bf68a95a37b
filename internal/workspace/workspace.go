// Package workspace resolves which data directory a command works on.
//
// A directory can be linked to a data directory with a .seastar file holding
// its path. Commands run anywhere below that directory use the linked data.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const FileName = ".seastar"

// DefaultDirName is the data directory under the user's home when nothing is
// linked.
const DefaultDirName = ".seastar"

// Find walks up from startDir looking for a .seastar link file.
// Returns the linked data directory and the directory containing the file.
// Returns ("", "", nil) if not found.
func Find(startDir string) (dataDir, dir string, err error) {
	dir = startDir
	for {
		dataDir, err := Read(dir)
		if err != nil {
			return "", "", err
		}
		if dataDir != "" {
			return dataDir, dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", "", nil
		}
		dir = parent
	}
}

// Write links dir to dataDir.
func Write(dir, dataDir string) error {
	if dataDir == "" {
		return errors.New("empty data directory")
	}
	return os.WriteFile(filepath.Join(dir, FileName), []byte(dataDir+"\n"), 0644)
}

// Read returns the data directory linked from dir. Relative paths are
// resolved against dir. Returns ("", nil) if dir has no link file, or if
// .seastar there is a directory (the default data directory itself).
func Read(dir string) (string, error) {
	path := filepath.Join(dir, FileName)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	if info.IsDir() {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	target := strings.TrimSpace(string(data))
	if target == "" {
		return "", nil
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(dir, target)
	}
	return target, nil
}

// Remove deletes the link file in dir. A missing file is not an error.
func Remove(dir string) error {
	path := filepath.Join(dir, FileName)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a link", path)
	}
	return os.Remove(path)
}

// Resolve picks the data directory: an explicit flag value, else a link found
// from cwd, else ~/.seastar.
func Resolve(flagDir, cwd string) (string, error) {
	if flagDir != "" {
		return flagDir, nil
	}
	if cwd != "" {
		linked, _, err := Find(cwd)
		if err != nil {
			return "", fmt.Errorf("reading workspace link: %w", err)
		}
		if linked != "" {
			return linked, nil
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home dir: %w", err)
	}
	return filepath.Join(home, DefaultDirName), nil
}
