package testutils

import (
	"net"
	"sync"
	"testing"

	"github.com/zerfoo/ensemble/jobs"
	"google.golang.org/grpc"
)

// CustomMockListener is a custom mock implementation of the net.Listener interface.
type CustomMockListener struct {
	mu          sync.Mutex
	AcceptErr   error
	CloseErr    error
	AddrVal     net.Addr
	acceptCalls int
	closeCalls  int
	addrCalls   int
}

// Accept returns immediately with no connection and the scripted AcceptErr.
func (m *CustomMockListener) Accept() (net.Conn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acceptCalls++

	return nil, m.AcceptErr
}

// Close closes the listener.
func (m *CustomMockListener) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCalls++

	return m.CloseErr
}

// Addr returns the listener's network address.
func (m *CustomMockListener) Addr() net.Addr {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addrCalls++

	return m.AddrVal
}

// OnAccept sets the error Accept returns.
func (m *CustomMockListener) OnAccept(err error) *CustomMockListener {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AcceptErr = err

	return m
}

// OnClose sets the error Close returns.
func (m *CustomMockListener) OnClose(err error) *CustomMockListener {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CloseErr = err

	return m
}

// OnAddr sets the address Addr returns.
func (m *CustomMockListener) OnAddr(addr net.Addr) *CustomMockListener {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AddrVal = addr

	return m
}

// AssertExpectations performs no checks; no call expectations are recorded.
func (m *CustomMockListener) AssertExpectations(t *testing.T) {
	t.Helper()
}

// CustomMockGrpcServer is a custom mock implementation of the GrpcServer interface.
type CustomMockGrpcServer struct {
	mu                   sync.Mutex
	registerServiceCalls int
	serveCalls           int
	stopCalls            int
	gracefulStopCalls    int
	ServeErr             error
}

// RegisterService registers a service with the mock gRPC server.
func (m *CustomMockGrpcServer) RegisterService(_ *grpc.ServiceDesc, _ interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registerServiceCalls++
}

// Serve starts serving the mock gRPC server.
func (m *CustomMockGrpcServer) Serve(_ net.Listener) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.serveCalls++

	return m.ServeErr
}

// Stop stops the gRPC server.
func (m *CustomMockGrpcServer) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopCalls++
}

// GracefulStop stops the gRPC server gracefully.
func (m *CustomMockGrpcServer) GracefulStop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gracefulStopCalls++
}

// OnServe sets the error Serve returns.
func (m *CustomMockGrpcServer) OnServe(err error) *CustomMockGrpcServer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ServeErr = err

	return m
}

// AssertExpectations performs no checks; no call expectations are recorded.
func (m *CustomMockGrpcServer) AssertExpectations(t *testing.T) {
	t.Helper()
}

// CustomMockLogger is a custom mock implementation of the Logger interface.
type CustomMockLogger struct {
	mu          sync.Mutex
	printfCalls int
	printfArgs  []struct {
		format string
		v      []interface{}
	}
}

// Printf records the arguments and increments the call count for the Printf method.
func (m *CustomMockLogger) Printf(format string, v ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.printfCalls++
	m.printfArgs = append(m.printfArgs, struct {
		format string
		v      []interface{}
	}{
		format: format,
		v:      v,
	})
}

// AssertExpectations performs no checks; no call expectations are recorded.
func (m *CustomMockLogger) AssertExpectations(t *testing.T) {
	t.Helper()
}

// OnPrintf returns m unchanged; Printf needs no scripting.
func (m *CustomMockLogger) OnPrintf() *CustomMockLogger {
	return m
}

// CustomMockJobHandler is a scriptable mock of jobs.JobHandler, used by
// jobs package tests that need deterministic submit/poll behavior
// without a real worker pool. Grounded in the same On*/Return*-style
// scripting the teacher's CustomMockStrategy used for its distributed
// strategy mock.
type CustomMockJobHandler struct {
	mu sync.Mutex

	freeSpots int
	finished  map[string]finishedStub

	submitCalls int
	SubmitErr   error
}

type finishedStub struct {
	returnCode int
	result     any
}

// NewCustomMockJobHandler returns a mock with the given free-spot count.
func NewCustomMockJobHandler(freeSpots int) *CustomMockJobHandler {
	return &CustomMockJobHandler{freeSpots: freeSpots, finished: make(map[string]finishedStub)}
}

// Submit records the call. MarkFinished must be called separately to
// script the eventual result, since real work is never executed here.
func (m *CustomMockJobHandler) Submit(work jobs.WorkUnit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitCalls++
	return m.SubmitErr
}

// HowManyFreeSpots returns the configured free-spot count.
func (m *CustomMockJobHandler) HowManyFreeSpots() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.freeSpots
}

// MarkFinished scripts identifier to report as finished with the given
// return code and result.
func (m *CustomMockJobHandler) MarkFinished(identifier string, returnCode int, result any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished[identifier] = finishedStub{returnCode: returnCode, result: result}
}

// IsJobFinished reports whether identifier has been scripted as finished.
func (m *CustomMockJobHandler) IsJobFinished(identifier string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.finished[identifier]
	return ok
}

// mockFinishedJob adapts a finishedStub to jobs.FinishedJob.
type mockFinishedJob struct {
	identifier string
	stub       finishedStub
}

func (f *mockFinishedJob) Identifier() string { return f.identifier }
func (f *mockFinishedJob) ReturnCode() int    { return f.stub.returnCode }
func (f *mockFinishedJob) Result() any        { return f.stub.result }

// GetFinished returns the scripted finished job for identifier.
func (m *CustomMockJobHandler) GetFinished(identifier, _ string) (jobs.FinishedJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stub, ok := m.finished[identifier]
	if !ok {
		return nil, jobs.ErrJobNotFound
	}
	return &mockFinishedJob{identifier: identifier, stub: stub}, nil
}

var _ jobs.JobHandler = (*CustomMockJobHandler)(nil)
