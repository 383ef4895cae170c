package rpc

import (
	"context"
	"fmt"
	"sync"

	"github.com/zerfoo/ensemble/jobs"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Dialer creates a gRPC client connection. Overridable for tests, the same
// shape as distributed.Dialer.
type Dialer func(ctx context.Context, target string) (*grpc.ClientConn, error)

func defaultDialer(ctx context.Context, target string) (*grpc.ClientConn, error) {
	return grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
}

// Handler is a jobs.JobHandler that proxies Submit/poll/retrieve to an
// out-of-process Server over gRPC. Its HowManyFreeSpots is approximated by
// a local semaphore sized to the handler's own concurrency budget, since
// the wire contract does not expose the remote worker's free-slot count
// directly (the original job handler is queried in-process; a remote
// worker only answers isThisJobFinished/getFinished).
type Handler struct {
	client JobServiceClient
	conn   *grpc.ClientConn

	mu       sync.Mutex
	inFlight int
	budget   int
}

// NewHandler dials target (or uses dialer if non-nil, for tests) and
// returns a Handler with the given local concurrency budget.
func NewHandler(ctx context.Context, target string, budget int, dialer Dialer) (*Handler, error) {
	if dialer == nil {
		dialer = defaultDialer
	}
	conn, err := dialer(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("jobs/rpc: dial %s: %w", target, err)
	}
	if budget < 1 {
		budget = 1
	}
	return &Handler{
		client: NewJobServiceClient(conn),
		conn:   conn,
		budget: budget,
	}, nil
}

// Close closes the underlying connection.
func (h *Handler) Close() error {
	return h.conn.Close()
}

// HowManyFreeSpots implements jobs.JobHandler.
func (h *Handler) HowManyFreeSpots() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.budget - h.inFlight
}

// Submit implements jobs.JobHandler by ignoring work.Work (the remote
// worker executes its own registered Executor for the model name embedded
// in metadata) and issuing a Submit RPC.
func (h *Handler) Submit(work jobs.WorkUnit) error {
	modelName, _ := work.Metadata["modelName"].(string)
	payloadRaw, _ := work.Metadata["payload"].(map[string]any)
	payloadStruct, err := structpb.NewStruct(payloadRaw)
	if err != nil {
		return fmt.Errorf("jobs/rpc: encoding payload: %w", err)
	}
	req, err := structpb.NewStruct(map[string]any{
		"identifier":    work.Identifier,
		"uniqueHandler": work.UniqueHandler,
		"modelName":     modelName,
	})
	if err != nil {
		return err
	}
	req.Fields["payload"] = structpb.NewStructValue(payloadStruct)

	h.mu.Lock()
	h.inFlight++
	h.mu.Unlock()

	_, err = h.client.Submit(context.Background(), req)
	return err
}

// IsJobFinished implements jobs.JobHandler.
func (h *Handler) IsJobFinished(identifier string) bool {
	resp, err := h.client.Poll(context.Background(), wrapperspb.String(identifier))
	if err != nil {
		return false
	}
	return resp.GetValue()
}

// GetFinished implements jobs.JobHandler.
func (h *Handler) GetFinished(identifier, uniqueHandler string) (jobs.FinishedJob, error) {
	req, err := structpb.NewStruct(map[string]any{
		"identifier":    identifier,
		"uniqueHandler": uniqueHandler,
	})
	if err != nil {
		return nil, err
	}
	resp, err := h.client.Finished(context.Background(), req)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	h.inFlight--
	h.mu.Unlock()

	fields := resp.GetFields()
	returnCode := int(fields["returnCode"].GetNumberValue())
	var value any
	if returnCode == 0 {
		value = fields["outputs"].GetStructValue().AsMap()
	}
	return &remoteResult{identifier: identifier, returnCode: returnCode, value: value}, nil
}

type remoteResult struct {
	identifier string
	returnCode int
	value      any
}

func (r *remoteResult) Identifier() string { return r.identifier }
func (r *remoteResult) ReturnCode() int    { return r.returnCode }
func (r *remoteResult) Result() any        { return r.value }

var _ jobs.JobHandler = (*Handler)(nil)
