package jobs

import (
	"fmt"
	"io"
	"log"
	"time"
)

// SubModelFailure is raised when a sub-model's job reports a failure
// return code. It carries enough context for the structured, user-visible
// message the error handling design requires.
type SubModelFailure struct {
	ModelName    string
	SamplePrefix string
}

func (e *SubModelFailure) Error() string {
	return fmt.Sprintf("sub-model %q failed for sample %q", e.ModelName, e.SamplePrefix)
}

// Coordinator wraps a JobHandler with the submit/await contract the Picard
// driver and the acyclic forward sweep both drive against. It threads the
// compound identifier scheme (<modelName>|<samplePrefix>,
// <ensembleName>|<samplePrefix>) through every call so callers never
// construct job identities themselves.
//
// Modeled on distributed/coordinator.Coordinator: a logger built from an
// injected io.Writer, and state mutation funneled through a small set of
// named methods rather than exposed fields.
type Coordinator struct {
	ensembleName string
	handler      JobHandler
	logger       *log.Logger
}

// NewCoordinator creates a Coordinator for the given ensemble name, driving
// the supplied JobHandler, logging to out.
func NewCoordinator(ensembleName string, handler JobHandler, out io.Writer) *Coordinator {
	return &Coordinator{
		ensembleName: ensembleName,
		handler:      handler,
		logger:       log.New(out, "jobcoordinator: ", log.LstdFlags),
	}
}

// Identifier returns the compound <modelName>|<samplePrefix> job identity.
func Identifier(modelName, samplePrefix string) string {
	return modelName + "|" + samplePrefix
}

// UniqueHandler returns the <ensembleName>|<samplePrefix> coordination
// scope shared by every sub-model job belonging to one sample.
func (c *Coordinator) UniqueHandler(samplePrefix string) string {
	return c.ensembleName + "|" + samplePrefix
}

// SubmitOne blocks until a worker slot is free, then submits work under
// the compound identifier for (modelName, samplePrefix).
func (c *Coordinator) SubmitOne(modelName, samplePrefix string, work func() (any, error)) error {
	return SubmitBlocking(c.handler, WorkUnit{
		Identifier:    Identifier(modelName, samplePrefix),
		UniqueHandler: c.UniqueHandler(samplePrefix),
		Work:          work,
	})
}

// AwaitOne busy-waits for (modelName, samplePrefix) to finish, then
// retrieves it. On a failure return code it drains every sibling job
// sharing the same uniqueHandler and returns a *SubModelFailure.
func (c *Coordinator) AwaitOne(modelName, samplePrefix string) (FinishedJob, error) {
	identifier := Identifier(modelName, samplePrefix)
	uniqueHandler := c.UniqueHandler(samplePrefix)
	for !c.handler.IsJobFinished(identifier) {
		time.Sleep(PollInterval)
	}
	finished, err := c.handler.GetFinished(identifier, uniqueHandler)
	if err != nil {
		return nil, fmt.Errorf("jobcoordinator: retrieving %q: %w", identifier, err)
	}
	if finished.ReturnCode() == -1 {
		c.drainSiblings(uniqueHandler)
		c.logger.Printf("sub-model %s failed for sample %s", modelName, samplePrefix)
		return nil, &SubModelFailure{ModelName: modelName, SamplePrefix: samplePrefix}
	}
	return finished, nil
}

// drainSiblings discards every other job sharing uniqueHandler so a failed
// sample leaves no pending job identifiers behind.
func (c *Coordinator) drainSiblings(uniqueHandler string) {
	type drainer interface{ DrainHandler(string) }
	if d, ok := c.handler.(drainer); ok {
		d.DrainHandler(uniqueHandler)
	}
}
