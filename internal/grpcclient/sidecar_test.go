package grpcclient

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/GriffinCanCode/autoui/internal/ocr"
)

// ocrServer is the sidecar contract served over bufconn in tests.
type ocrServer interface {
	Recognize(ctx context.Context, png *wrapperspb.BytesValue) (*structpb.ListValue, error)
}

var ocrServiceDesc = grpc.ServiceDesc{
	ServiceName: "autoui.ocr.v1.OCRService",
	HandlerType: (*ocrServer)(nil),
	Methods: []grpc.MethodDesc{{
		MethodName: "Recognize",
		Handler:    recognizeHandler,
	}},
	Streams:  []grpc.StreamDesc{},
	Metadata: "autoui/ocr/v1/ocr.proto",
}

func recognizeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ocrServer).Recognize(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: OCRRecognizeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ocrServer).Recognize(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

// encodeSpans is the sidecar half of the span wire format.
func encodeSpans(spans []ocr.Span) (*structpb.ListValue, error) {
	values := make([]any, 0, len(spans))
	for _, s := range spans {
		quad := make([]any, 0, 8)
		for _, p := range s.Quad {
			quad = append(quad, float64(p.X), float64(p.Y))
		}
		values = append(values, map[string]any{
			"text":       s.Text,
			"confidence": s.Confidence,
			"quad":       quad,
		})
	}
	list, err := structpb.NewList(values)
	if err != nil {
		return nil, fmt.Errorf("encode spans: %w", err)
	}
	return list, nil
}
