package artifact

import (
	"time"

	"github.com/conveyorci/conveyor/pkg/cron"
)

// ScheduleSweep registers the retention sweep on the scheduler.
// The sweep is idempotent, so overlapping or missed ticks are harmless.
func (m *Manager) ScheduleSweep(s *cron.Scheduler, spec string) error {
	return s.AddFunc(spec, "artifact-retention-sweep", func() {
		flagged := m.Expire(time.Now())
		if flagged > 0 && m.logger != nil && m.logger.Log != nil {
			m.logger.Log.Infow("retention sweep flagged artifacts", "count", flagged)
		}
	})
}
