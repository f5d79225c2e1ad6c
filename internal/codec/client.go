package codec

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/decision-harness/internal/explain"
	"github.com/danielpatrickdp/decision-harness/internal/state"
	"github.com/danielpatrickdp/decision-harness/internal/uncertainty"
)

// #region client-struct
// DecisionClient wraps the gRPC connection to a decision server.
type DecisionClient struct {
	conn   *grpc.ClientConn
	client DecisionServiceClient
}

// #endregion client-struct

// #region constructor
// NewDecisionClient connects to a decision server at addr.
func NewDecisionClient(addr string, opts ...grpc.DialOption) (*DecisionClient, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &DecisionClient{
		conn:   conn,
		client: NewDecisionServiceClient(conn),
	}, nil
}

// NewDecisionClientWithService creates a DecisionClient with an injected service implementation.
// Used for testing without a real gRPC connection.
func NewDecisionClientWithService(svc DecisionServiceClient) *DecisionClient {
	return &DecisionClient{client: svc}
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection.
func (c *DecisionClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// #region decide
// Decide asks the server for an action for s.
func (c *DecisionClient) Decide(ctx context.Context, s state.State) (explain.Explanation, error) {
	req, err := structpb.NewStruct(state.ToMap(s))
	if err != nil {
		return explain.Explanation{}, fmt.Errorf("encode state: %w", err)
	}
	resp, err := c.client.Decide(ctx, req)
	if err != nil {
		return explain.Explanation{}, fmt.Errorf("decide rpc: %w", err)
	}
	return decodeExplanation(resp)
}

// #endregion decide

// #region limits
// Limits fetches the server's uncertainty snapshot.
func (c *DecisionClient) Limits(ctx context.Context) (uncertainty.Snapshot, error) {
	resp, err := c.client.Limits(ctx, &emptypb.Empty{})
	if err != nil {
		return uncertainty.Snapshot{}, fmt.Errorf("limits rpc: %w", err)
	}
	return decodeLimits(resp.AsMap())
}

// #endregion limits
