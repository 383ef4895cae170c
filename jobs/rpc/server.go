package rpc

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"sync"

	"github.com/zerfoo/ensemble/jobs"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Executor runs one sub-model's work for a submitted payload and returns
// the output variables produced.
type Executor func(payload map[string]any) (map[string]any, error)

// Server is the out-of-process worker side of jobs/rpc: it holds a
// registry of named Executors (one per sub-model variant the worker
// process knows how to run) and serves JobServiceServer over gRPC,
// backed internally by a jobs.Pool.
//
// Modeled on distributed/coordinator.Coordinator: an injected io.Writer
// for logging, a net.Listener captured at Start, Stop/GracefulStop pairs.
type Server struct {
	mu        sync.RWMutex
	executors map[string]Executor
	pool      *jobs.Pool
	logger    *log.Logger
	server    *grpc.Server
	lis       net.Listener
}

// NewServer creates a Server with the given worker capacity.
func NewServer(capacity int, out io.Writer) *Server {
	return &Server{
		executors: make(map[string]Executor),
		pool:      jobs.NewPool(capacity),
		logger:    log.New(out, "jobserver: ", log.LstdFlags),
	}
}

// RegisterExecutor makes modelName's work function available to Submit
// calls naming it.
func (s *Server) RegisterExecutor(modelName string, exec Executor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executors[modelName] = exec
}

// Start listens on address and serves the JobService.
func (s *Server) Start(address string) error {
	lis, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("jobserver: listen: %w", err)
	}
	s.lis = lis
	s.server = grpc.NewServer()
	RegisterJobServiceServer(s.server, s)
	s.logger.Printf("starting gRPC job server on %s", lis.Addr().String())
	go func() {
		if err := s.server.Serve(lis); err != nil && err != grpc.ErrServerStopped {
			s.logger.Printf("gRPC server failed: %v", err)
		}
	}()
	return nil
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() net.Addr {
	if s.lis == nil {
		return nil
	}
	return s.lis.Addr()
}

// Stop gracefully stops the server.
func (s *Server) Stop() {
	if s.server != nil {
		s.server.GracefulStop()
	}
}

// Submit implements JobServiceServer.Submit: decodes the work request,
// looks up the named executor, and dispatches it onto the internal pool.
func (s *Server) Submit(_ context.Context, req *structpb.Struct) (*wrapperspb.StringValue, error) {
	fields := req.GetFields()
	identifier := fields["identifier"].GetStringValue()
	uniqueHandler := fields["uniqueHandler"].GetStringValue()
	modelName := fields["modelName"].GetStringValue()
	payload := fields["payload"].GetStructValue().AsMap()

	s.mu.RLock()
	exec, ok := s.executors[modelName]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("jobserver: no executor registered for model %q", modelName)
	}

	err := s.pool.Submit(jobs.WorkUnit{
		Identifier:    identifier,
		UniqueHandler: uniqueHandler,
		Work: func() (any, error) {
			return exec(payload)
		},
	})
	if err != nil {
		return nil, err
	}
	return wrapperspb.String(identifier), nil
}

// Poll implements JobServiceServer.Poll.
func (s *Server) Poll(_ context.Context, req *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	return wrapperspb.Bool(s.pool.IsJobFinished(req.GetValue())), nil
}

// Finished implements JobServiceServer.Finished: retrieves and removes the
// completed job, returning its outputs (or a failure marker) as a Struct.
func (s *Server) Finished(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	identifier := fields["identifier"].GetStringValue()
	uniqueHandler := fields["uniqueHandler"].GetStringValue()

	finished, err := s.pool.GetFinished(identifier, uniqueHandler)
	if err != nil {
		return nil, err
	}
	returnCode := finished.ReturnCode()
	out := map[string]any{"returnCode": float64(returnCode)}
	if returnCode == 0 {
		if values, ok := finished.Result().(map[string]any); ok {
			out["outputs"] = values
		}
	}
	return structpb.NewStruct(out)
}

var _ JobServiceServer = (*Server)(nil)
