package codec

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/decision-harness/internal/execution"
	"github.com/danielpatrickdp/decision-harness/internal/explain"
	"github.com/danielpatrickdp/decision-harness/internal/logging"
	"github.com/danielpatrickdp/decision-harness/internal/metrics"
	"github.com/danielpatrickdp/decision-harness/internal/state"
	"github.com/danielpatrickdp/decision-harness/internal/uncertainty"
)

// #region options

// ServerOption configures a Server.
type ServerOption func(*Server)

func WithServerLogger(l *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

func WithServerMetrics(m *metrics.Metrics) ServerOption {
	return func(s *Server) { s.metrics = m }
}

// WithModel shares an uncertainty model with the server.
func WithModel(m *uncertainty.Model) ServerOption {
	return func(s *Server) { s.model = m }
}

// #endregion options

// #region server

// Server serves decisions from a read-only policy. Calls are serialised;
// neither the policy nor the model is safe for concurrent use.
type Server struct {
	mu        sync.Mutex
	policy    state.Policy
	engine    *execution.DecisionEngine
	model     *uncertainty.Model
	explainer *explain.Explainer
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

var _ DecisionServiceServer = (*Server)(nil)

func NewServer(p state.Policy, opts ...ServerOption) *Server {
	s := &Server{
		policy:    p,
		engine:    execution.NewDecisionEngine(),
		explainer: explain.NewExplainer(),
		logger:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.model == nil {
		s.model = uncertainty.NewModel()
	}
	return s
}

// Decide decodes a state, serves a decision and returns its explanation.
// Malformed states map to InvalidArgument. The model only changes when the
// decision succeeds.
func (s *Server) Decide(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	st, err := state.FromMap(req.AsMap())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	s.mu.Lock()
	d, err := s.engine.Decide(s.policy, st)
	if err != nil {
		s.mu.Unlock()
		s.logger.Error("decide failed", "error", err)
		if errors.Is(err, state.ErrSchemaViolation) {
			return nil, status.Error(codes.FailedPrecondition, err.Error())
		}
		return nil, status.Error(codes.Internal, err.Error())
	}
	if d.Confidence > 0 {
		s.model.MarkObserved(st)
	} else {
		s.model.RegisterState(st)
		s.model.RecordPartialObservation()
	}
	exp := s.explainer.Explain(st, d.Action, d.Confidence, s.model.Snapshot())
	s.mu.Unlock()

	s.metrics.ObserveDecision(d.Action, d.Confidence)
	s.logger.Debug("served decision", "action", d.Action, "confidence", d.Confidence)

	out, err := encodeExplanation(exp)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// Limits returns the current uncertainty snapshot.
func (s *Server) Limits(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	s.mu.Lock()
	snap := s.model.Snapshot()
	s.mu.Unlock()

	out, err := encodeLimits(snap)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// #endregion server
