package workflow

import (
	"errors"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/edvin/certbind/internal/activity"
)

// registerActivities registers activity structs with the test workflow
// environment so the framework knows the parameter and return types of the
// activities mocked via OnActivity.
func registerActivities(env *testsuite.TestWorkflowEnvironment) {
	env.RegisterActivity(&activity.ACME{})
	env.RegisterActivity(&activity.Challenges{})
	env.RegisterActivity(&activity.Orders{})
	env.RegisterActivity(&activity.Audit{})
}

// workflowErrorType returns the application error type of a workflow failure.
func workflowErrorType(err error) string {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Type()
	}
	return ""
}
