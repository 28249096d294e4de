package disk

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Disk the on-disk application
type Disk struct {
	root string // the app root
}

// Open the application
func Open(root string) (*Disk, error) {

	// with home dir
	if strings.HasPrefix(root, "~") {
		homedir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("[disk.Open] %s %s", root, err.Error())
		}
		root = homedir + strings.TrimPrefix(root, "~")
	}

	path, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("[disk.Open] %s %s", root, err.Error())
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("[disk.Open] %s %s", root, err.Error())
	}

	return &Disk{root: path}, nil
}

// Read the file content
func (disk *Disk) Read(name string) ([]byte, error) {
	file, err := disk.abs(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(file)
}

// Exists check if the file exists
func (disk *Disk) Exists(name string) (bool, error) {
	file, err := disk.abs(name)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(file)
	if err == nil {
		return true, nil
	}

	if os.IsNotExist(err) {
		return false, nil
	}

	return false, err
}

// Glob the files by pattern
func (disk *Disk) Glob(pattern string) ([]string, error) {
	file, err := disk.abs(pattern)
	if err != nil {
		return nil, err
	}
	matches, err := filepath.Glob(file)
	if err != nil {
		return nil, err
	}

	for i, match := range matches {
		matches[i] = strings.TrimPrefix(match, disk.root+string(os.PathSeparator))
	}

	return matches, nil
}

// Root the application root path
func (disk *Disk) Root() string {
	return disk.root
}

func (disk *Disk) abs(root string) (string, error) {
	if !strings.HasPrefix(root, disk.root) {
		root = filepath.Join(disk.root, root)
	}

	path, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}

	if !strings.HasPrefix(path, disk.root) {
		return "", fmt.Errorf("%s is outside the application root", root)
	}

	return path, nil
}
