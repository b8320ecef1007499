package workflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/testsuite"
)

type PurgeExpiredChallengesWorkflowTestSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
	env *testsuite.TestWorkflowEnvironment
}

func (s *PurgeExpiredChallengesWorkflowTestSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
	registerActivities(s.env)
}

func (s *PurgeExpiredChallengesWorkflowTestSuite) AfterTest(suiteName, testName string) {
	s.env.AssertExpectations(s.T())
}

func (s *PurgeExpiredChallengesWorkflowTestSuite) TestSuccess() {
	s.env.OnActivity("PurgeExpiredChallenges", mock.Anything).Return(int64(3), nil)

	s.env.ExecuteWorkflow(PurgeExpiredChallengesWorkflow)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func (s *PurgeExpiredChallengesWorkflowTestSuite) TestStoreError() {
	s.env.OnActivity("PurgeExpiredChallenges", mock.Anything).Return(int64(0), errors.New("connection refused"))

	s.env.ExecuteWorkflow(PurgeExpiredChallengesWorkflow)
	s.True(s.env.IsWorkflowCompleted())
	s.Error(s.env.GetWorkflowError())
	s.env.AssertActivityNumberOfCalls(s.T(), "PurgeExpiredChallenges", 3)
}

func TestPurgeExpiredChallengesWorkflowTestSuite(t *testing.T) {
	suite.Run(t, new(PurgeExpiredChallengesWorkflowTestSuite))
}
