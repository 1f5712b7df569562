package output

import (
	"bufio"
	"fmt"
	"os"

	"github.com/gofrs/flock"
)

// WriteFile creates path and hands a buffered writer to fn. An advisory lock
// on path+".lock" keeps concurrent runs from interleaving the same report.
func WriteFile(path string, fn func(w *bufio.Writer) error) (err error) {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", path, err)
	}
	defer func() {
		if unlockErr := lock.Unlock(); unlockErr != nil && err == nil {
			err = fmt.Errorf("unlock %s: %w", path, unlockErr)
		}
		_ = os.Remove(path + ".lock")
	}()

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()

	buf := bufio.NewWriter(file)
	if err := fn(buf); err != nil {
		return err
	}
	return buf.Flush()
}
