// Package grpcclient talks to the OCR inference sidecar over gRPC.
//
// The sidecar contract uses well-known protobuf types so no generated stubs
// are needed: the request is a BytesValue holding a PNG, the response a
// ListValue of structs {text, confidence, quad: [x1,y1,...,x4,y4]}.
package grpcclient

import (
	"context"
	"errors"
	"image"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	apperr "github.com/GriffinCanCode/autoui/internal/errors"
	"github.com/GriffinCanCode/autoui/internal/ocr"
	"github.com/GriffinCanCode/autoui/internal/resilience"
	"github.com/GriffinCanCode/autoui/internal/trace"
	"github.com/GriffinCanCode/autoui/internal/vision"
)

// Client is an ocr.Recognizer backed by the sidecar.
type Client struct {
	conn    *grpc.ClientConn
	breaker *resilience.Breaker
	timeout time.Duration
}

// Option configures a Client.
type Option func(*options)

type options struct {
	timeout  time.Duration
	breaker  resilience.Config
	dialOpts []grpc.DialOption
}

// WithTimeout bounds each Recognize call.
func WithTimeout(d time.Duration) Option { return func(o *options) { o.timeout = d } }

// WithBreaker overrides the circuit breaker settings.
func WithBreaker(cfg resilience.Config) Option { return func(o *options) { o.breaker = cfg } }

// WithDialOptions appends raw gRPC dial options.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(o *options) { o.dialOpts = append(o.dialOpts, opts...) }
}

// New creates a client for the sidecar at addr. The connection is lazy:
// an unreachable sidecar surfaces on the first Recognize call.
func New(addr string, opts ...Option) (*Client, error) {
	o := options{timeout: DefaultCallTimeout, breaker: resilience.SidecarConfig()}
	for _, opt := range opts {
		opt(&o)
	}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(trace.UnaryClientInterceptor()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:    DefaultKeepaliveTime,
			Timeout: DefaultKeepaliveTimeout,
		}),
		grpc.WithDefaultCallOptions(grpc.MaxCallSendMsgSize(MaxImageBytes)),
	}, o.dialOpts...)

	conn, err := grpc.NewClient(addr, dialOpts...)
	if err != nil {
		return nil, apperr.Wrapf(err, apperr.OCRUnavailable, "dial OCR sidecar %s", addr)
	}
	return &Client{conn: conn, breaker: resilience.New("ocr", o.breaker), timeout: o.timeout}, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Recognize sends img to the sidecar and returns the recognized spans.
func (c *Client) Recognize(ctx context.Context, img image.Image) ([]ocr.Span, error) {
	data, err := vision.EncodePNG(img)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.InvalidArgument, "encode OCR input")
	}

	ctx, span := trace.StartSpan(ctx, "ocr.recognize")
	defer span.End()
	span.SetAttr("bytes", len(data))

	spans, err := resilience.Call(c.breaker, func() ([]ocr.Span, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		reply := &structpb.ListValue{}
		if err := c.conn.Invoke(callCtx, OCRRecognizeMethod, wrapperspb.Bytes(data), reply); err != nil {
			return nil, apperr.FromGRPCError(err)
		}
		return decodeSpans(reply)
	}, countsAgainstSidecar)

	var open *resilience.OpenError
	if errors.As(err, &open) {
		return nil, apperr.Wrap(err, apperr.OCRUnavailable, "OCR sidecar circuit open").
			WithMetadata("retry_in", open.RetryIn.String())
	}
	if err != nil {
		span.SetAttr("error", err.Error())
		return nil, err
	}
	span.SetAttr("spans", len(spans))
	return spans, nil
}

// countsAgainstSidecar ignores errors caused by our own input.
func countsAgainstSidecar(err error) bool {
	switch apperr.CodeOf(err) {
	case apperr.InvalidArgument, apperr.InvalidSession:
		return false
	}
	return true
}

func decodeSpans(list *structpb.ListValue) ([]ocr.Span, error) {
	spans := make([]ocr.Span, 0, len(list.GetValues()))
	for i, v := range list.GetValues() {
		fields := v.GetStructValue().GetFields()
		if fields == nil {
			return nil, apperr.Newf(apperr.Internal, "OCR span %d is not a struct", i)
		}
		quad := fields["quad"].GetListValue().GetValues()
		if len(quad) != 8 {
			return nil, apperr.Newf(apperr.Internal, "OCR span %d: quad has %d coordinates, want 8", i, len(quad))
		}
		s := ocr.Span{
			Text:       fields["text"].GetStringValue(),
			Confidence: fields["confidence"].GetNumberValue(),
		}
		for j := 0; j < 4; j++ {
			s.Quad[j] = image.Pt(int(quad[2*j].GetNumberValue()), int(quad[2*j+1].GetNumberValue()))
		}
		spans = append(spans, s)
	}
	return spans, nil
}
