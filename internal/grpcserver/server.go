// Package grpcserver exposes a local classifier as the scorer service that
// grpcclient talks to.
package grpcserver

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/example/ai-check/internal/grpcclient"
	"github.com/example/ai-check/internal/imageprocessor"
)

// Scorer is the model served over the wire.
type Scorer interface {
	Score(ctx context.Context, t *imageprocessor.Tensor) (float64, error)
}

type scorerServer interface {
	score(ctx context.Context, req *wrapperspb.BytesValue) (*wrapperspb.DoubleValue, error)
}

type server struct {
	scorer Scorer
	logger *zap.Logger
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: grpcclient.ServiceName,
	HandlerType: (*scorerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Score", Handler: scoreHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "aicheck/scoring/v1/scorer.proto",
}

// Register installs the scorer service on registrar.
func Register(registrar grpc.ServiceRegistrar, scorer Scorer, logger *zap.Logger) {
	registrar.RegisterService(&serviceDesc, &server{scorer: scorer, logger: logger.Named("grpc_server")})
}

func (s *server) score(ctx context.Context, req *wrapperspb.BytesValue) (*wrapperspb.DoubleValue, error) {
	var tensor imageprocessor.Tensor
	if err := tensor.UnmarshalBinary(req.GetValue()); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if tensor.Height != imageprocessor.InputSize || tensor.Width != imageprocessor.InputSize {
		return nil, status.Errorf(codes.InvalidArgument, "expected %dx%d tensor, got %dx%d",
			imageprocessor.InputSize, imageprocessor.InputSize, tensor.Height, tensor.Width)
	}

	score, err := s.scorer.Score(ctx, &tensor)
	if err != nil {
		s.logger.Error("scoring failed", zap.Error(err))
		return nil, status.Error(codes.Internal, "scoring failed")
	}
	return wrapperspb.Double(score), nil
}

func scoreHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(scorerServer).score(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: grpcclient.ScoreMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(scorerServer).score(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}
