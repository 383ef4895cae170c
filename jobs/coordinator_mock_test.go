package jobs_test

import (
	"bytes"
	"testing"

	"github.com/zerfoo/ensemble/jobs"
	"github.com/zerfoo/ensemble/testing/testutils"
)

func TestCoordinator_AwaitOneWithScriptedMockHandler(t *testing.T) {
	mock := testutils.NewCustomMockJobHandler(2)
	coord := jobs.NewCoordinator("ensemble1", mock, &bytes.Buffer{})

	if err := coord.SubmitOne("A", "s1", func() (any, error) { return map[string]float64{"y": 7}, nil }); err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}
	mock.MarkFinished(jobs.Identifier("A", "s1"), 0, map[string]float64{"y": 7})

	finished, err := coord.AwaitOne("A", "s1")
	testutils.AssertNoError(t, err, "awaiting a scripted success")
	testutils.AssertEqual(t, "A|s1", finished.Identifier(), "compound identifier shape")
	testutils.AssertEqual(t, 0, finished.ReturnCode(), "successful return code")
}

func TestCoordinator_AwaitOneWithScriptedMockHandlerFailure(t *testing.T) {
	mock := testutils.NewCustomMockJobHandler(2)
	coord := jobs.NewCoordinator("ensemble1", mock, &bytes.Buffer{})

	if err := coord.SubmitOne("middle", "s1", func() (any, error) { return nil, nil }); err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}
	mock.MarkFinished(jobs.Identifier("middle", "s1"), -1, nil)

	_, err := coord.AwaitOne("middle", "s1")
	testutils.AssertError(t, err, "expected a SubModelFailure for a scripted -1 return code")
	failure, ok := err.(*jobs.SubModelFailure)
	testutils.AssertTrue(t, ok, "expected *jobs.SubModelFailure")
	if ok {
		testutils.AssertEqual(t, "middle", failure.ModelName, "failed model name")
		testutils.AssertEqual(t, "s1", failure.SamplePrefix, "failed sample prefix")
	}
}
