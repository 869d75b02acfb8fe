package grpcclient

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/example/ai-check/internal/imageprocessor"
	"github.com/example/ai-check/internal/logging"
)

// DialScorer returns a ready-to-use scorer backed by a remote scorer service.
func DialScorer(ctx context.Context, addr string, logger *zap.Logger, opts ...grpc.DialOption) (*Scorer, *grpc.ClientConn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
	}, opts...)
	conn, err := grpc.DialContext(dialCtx, addr, dialOpts...)
	if err != nil {
		wrapped := logging.NewOperationError("grpcclient.dial_scorer", "", err)
		logger.Error("failed to dial scorer", zap.Error(wrapped), zap.String("addr", addr))
		return nil, nil, wrapped
	}
	return NewScorer(conn, logger), conn, nil
}

// Scorer calls the remote Score method. It satisfies classifier.Scorer.
type Scorer struct {
	conn   grpc.ClientConnInterface
	logger *zap.Logger
}

// NewScorer wraps an existing connection.
func NewScorer(conn grpc.ClientConnInterface, logger *zap.Logger) *Scorer {
	return &Scorer{conn: conn, logger: logger.Named("grpc_scorer")}
}

// Score sends the tensor and returns the remote probability.
func (s *Scorer) Score(ctx context.Context, t *imageprocessor.Tensor) (float64, error) {
	payload, err := t.MarshalBinary()
	if err != nil {
		return 0, logging.NewOperationError("grpcclient.encode_tensor", "", err)
	}

	resp := &wrapperspb.DoubleValue{}
	if err := s.conn.Invoke(ctx, ScoreMethod, wrapperspb.Bytes(payload), resp); err != nil {
		wrapped := logging.NewOperationError("grpcclient.score", "", err)
		s.logger.Error("scorer call failed", zap.Error(wrapped))
		return 0, wrapped
	}
	return resp.GetValue(), nil
}
