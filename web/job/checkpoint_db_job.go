package job

import (
	"github.com/hivecrest/member-api/database"
	"github.com/hivecrest/member-api/logger"
	"github.com/hivecrest/member-api/util/common"
)

// CheckpointDbJob folds the SQLite write-ahead log back into the main
// database file so the WAL does not keep growing between restarts.
type CheckpointDbJob struct{}

// NewCheckpointDbJob creates a new database checkpoint job instance.
func NewCheckpointDbJob() *CheckpointDbJob {
	return new(CheckpointDbJob)
}

// Here Run is an interface method of the Job interface
func (j *CheckpointDbJob) Run() {
	defer common.Recover("checkpoint db job")

	if err := database.Checkpoint(); err != nil {
		logger.Warning("checkpoint db job err:", err)
	}
}
