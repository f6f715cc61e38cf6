package persistence

import (
	"fmt"

	"github.com/google/renameio/v2"
)

// writeAtomic writes data to path via a pending file that is fsynced and
// atomically renamed into place, so a crash mid-save never leaves a
// truncated project document.
func writeAtomic(path string, data []byte) error {
	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending file: %w", err)
	}
	defer pending.Cleanup()

	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("write pending file: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace file: %w", err)
	}
	return nil
}
