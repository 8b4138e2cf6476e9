package mirror

import (
	"fmt"
	"path/filepath"
	"time"
)

// SummaryLogName is the per-target log file a run appends its summary to.
const SummaryLogName = "backup_log.txt"

// SummaryTimeLayout is the timestamp layout of a summary line.
const SummaryTimeLayout = "2006-01-02 15:04:05"

// SummaryLogPath returns the summary log location for a target root.
func SummaryLogPath(targetRoot string) string {
	return filepath.Join(targetRoot, SummaryLogName)
}

// SummaryLine formats the line appended to a target's summary log.
func SummaryLine(copied, total int, at time.Time) string {
	return fmt.Sprintf("Backup completed - %d/%d files copied from source folder - %s\n",
		copied, total, at.Format(SummaryTimeLayout))
}
