package workflow

import (
	"time"

	"go.temporal.io/sdk/workflow"
)

// workflowClock adapts workflow timers to poll.Clock so polling inside a
// workflow stays deterministic and survives worker restarts.
type workflowClock struct {
	ctx workflow.Context
}

func (c workflowClock) Sleep(d time.Duration) error {
	return workflow.Sleep(c.ctx, d)
}
