package daemon

import (
	"github.com/benaskins/vigil/internal/audit"
	"github.com/benaskins/vigil/internal/updater"
)

// Update runs one binary update pass and clears the pending-update flag.
// Running processes are not touched; replaced binaries take effect on the
// next launch.
func (d *Daemon) Update() updater.Result {
	result := d.updater.Run()

	d.mu.Lock()
	d.updateAvailable = false
	d.mu.Unlock()

	entry := audit.Entry{Action: audit.ActionUpdate, Detail: result.Outcome.String()}
	if result.Detail != "" {
		entry.Detail = entry.Detail + ": " + result.Detail
	}
	d.auditLog(entry)
	d.logger.Info("update pass finished", "outcome", result.Outcome.String(), "detail", result.Detail)
	return result
}
