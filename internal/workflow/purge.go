package workflow

import (
	"go.temporal.io/sdk/workflow"
)

// PurgeScheduleID identifies the schedule that runs
// PurgeExpiredChallengesWorkflow.
const PurgeScheduleID = "purge-expired-challenges"

// PurgeCron runs the purge daily at 03:00 UTC.
const PurgeCron = "0 3 * * *"

// PurgeExpiredChallengesWorkflow removes challenge responses left behind by
// runs that never reached their cleanup step.
func PurgeExpiredChallengesWorkflow(ctx workflow.Context) error {
	ctx = workflow.WithActivityOptions(ctx, defaultActivityOptions)

	var purged int64
	if err := workflow.ExecuteActivity(ctx, "PurgeExpiredChallenges").Get(ctx, &purged); err != nil {
		return err
	}
	workflow.GetLogger(ctx).Info("purged expired challenges", "count", purged)
	return nil
}
