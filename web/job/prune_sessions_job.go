// Package job holds the cron jobs scheduled by the web server.
package job

import (
	"github.com/hivecrest/member-api/logger"
	"github.com/hivecrest/member-api/util/common"
	"github.com/hivecrest/member-api/web/service"

	"go.uber.org/atomic"
)

// PruneSessionsJob removes expired sessions from the store so the table
// does not grow without bound.
type PruneSessionsJob struct {
	sessionService service.SessionService

	pruned atomic.Int64
}

// NewPruneSessionsJob creates a new session pruning job instance.
func NewPruneSessionsJob() *PruneSessionsJob {
	return new(PruneSessionsJob)
}

// Here Run is an interface method of the Job interface
func (j *PruneSessionsJob) Run() {
	defer common.Recover("prune sessions job")

	count, err := j.sessionService.PruneExpired()
	if err != nil {
		logger.Warning("prune sessions job err:", err)
		return
	}
	if count > 0 {
		logger.Debugf("pruned %d expired sessions, %d since start", count, j.pruned.Add(count))
	}
}
