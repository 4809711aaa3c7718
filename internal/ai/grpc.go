package ai

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the gRPC service exposing Service. Requests and responses
// are google.protobuf.Struct messages carrying the same fields as the REST
// API's JSON bodies.
const ServiceName = "replydesk.ai.v1.ReplyAssist"

const (
	methodTranslate  = "Translate"
	methodRevise     = "Revise"
	methodSmartReply = "SmartReply"
	methodFormats    = "Formats"
	methodGenerate   = "Generate"
)

func fullMethod(name string) string { return "/" + ServiceName + "/" + name }

// GRPCClient calls a reply-assist gRPC server.
type GRPCClient struct {
	conn *grpc.ClientConn
}

// DialGRPC connects to addr without transport security, as the service is
// expected on a local or sidecar address.
func DialGRPC(addr string, opts ...grpc.DialOption) (*GRPCClient, error) {
	if addr == "" {
		return nil, fmt.Errorf("%w: grpc address is required", ErrUnavailable)
	}
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &GRPCClient{conn: conn}, nil
}

// Close releases the connection.
func (c *GRPCClient) Close() error { return c.conn.Close() }

func (c *GRPCClient) invoke(ctx context.Context, method string, in map[string]any) (map[string]any, error) {
	req, err := structpb.NewStruct(in)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", method, err)
	}
	resp := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, fullMethod(method), req, resp); err != nil {
		if s, ok := status.FromError(err); ok && s.Code() == codes.Unavailable {
			return nil, fmt.Errorf("%s: %w: %s", method, ErrUnavailable, s.Message())
		}
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return resp.AsMap(), nil
}

// Translate implements Service.
func (c *GRPCClient) Translate(ctx context.Context, text, language string) (string, error) {
	if err := requireText(text); err != nil {
		return "", err
	}
	out, err := c.invoke(ctx, methodTranslate, map[string]any{"text": text, "language": language})
	if err != nil {
		return "", err
	}
	return stringField(out, "translated_text"), nil
}

// Revise implements Service.
func (c *GRPCClient) Revise(ctx context.Context, text, formatID string) (string, error) {
	if err := requireText(text); err != nil {
		return "", err
	}
	out, err := c.invoke(ctx, methodRevise, map[string]any{"text": text, "format": formatID})
	if err != nil {
		return "", err
	}
	return stringField(out, "revised_text"), nil
}

// SmartReply implements Service.
func (c *GRPCClient) SmartReply(ctx context.Context, req SmartReplyRequest) (Review, error) {
	if err := requireText(req.AgentMessage); err != nil {
		return Review{}, err
	}
	out, err := c.invoke(ctx, methodSmartReply, smartReplyToMap(req))
	if err != nil {
		return Review{}, err
	}
	review := reviewFromMap(out)
	if review.OriginalText == "" {
		review.OriginalText = req.AgentMessage
	}
	return review, nil
}

// Formats implements Service.
func (c *GRPCClient) Formats(ctx context.Context) ([]Format, error) {
	out, err := c.invoke(ctx, methodFormats, map[string]any{})
	if err != nil {
		return nil, err
	}
	raw, _ := out["formats"].([]any)
	formats := make([]Format, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		formats = append(formats, Format{
			ID:          stringField(m, "id"),
			Name:        stringField(m, "name"),
			Description: stringField(m, "description"),
		})
	}
	return formats, nil
}

// Generate implements Service.
func (c *GRPCClient) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	out, err := c.invoke(ctx, methodGenerate, map[string]any{
		"conversation_id":   req.ConversationID,
		"user_last_message": req.UserLastMessage,
		"draft":             req.Draft,
	})
	if err != nil {
		return "", err
	}
	return stringField(out, "text"), nil
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func smartReplyToMap(req SmartReplyRequest) map[string]any {
	return map[string]any{
		"agent_message":     req.AgentMessage,
		"user_last_message": req.UserLastMessage,
		"tone":              req.Tone,
		"target_language":   req.TargetLanguage,
	}
}

func smartReplyFromMap(m map[string]any) SmartReplyRequest {
	return SmartReplyRequest{
		AgentMessage:    stringField(m, "agent_message"),
		UserLastMessage: stringField(m, "user_last_message"),
		Tone:            stringField(m, "tone"),
		TargetLanguage:  stringField(m, "target_language"),
	}
}

func reviewToMap(r Review) map[string]any {
	improvements := make([]any, len(r.Improvements))
	for i, s := range r.Improvements {
		improvements[i] = s
	}
	return map[string]any{
		"original_text":           r.OriginalText,
		"improved_text":           r.ImprovedText,
		"detected_user_language":  r.DetectedUserLanguage,
		"detected_agent_language": r.DetectedAgentLanguage,
		"was_translated":          r.WasTranslated,
		"improvements":            improvements,
	}
}

func reviewFromMap(m map[string]any) Review {
	r := Review{
		OriginalText:          stringField(m, "original_text"),
		ImprovedText:          stringField(m, "improved_text"),
		DetectedUserLanguage:  stringField(m, "detected_user_language"),
		DetectedAgentLanguage: stringField(m, "detected_agent_language"),
	}
	r.WasTranslated, _ = m["was_translated"].(bool)
	if raw, ok := m["improvements"].([]any); ok {
		for _, item := range raw {
			if s, ok := item.(string); ok {
				r.Improvements = append(r.Improvements, s)
			}
		}
	}
	return r
}

// RegisterServer exposes svc on s under ServiceName.
func RegisterServer(s grpc.ServiceRegistrar, svc Service) {
	s.RegisterService(&grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*Service)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: methodTranslate, Handler: structHandler(methodTranslate, func(ctx context.Context, svc Service, in map[string]any) (map[string]any, error) {
				out, err := svc.Translate(ctx, stringField(in, "text"), stringField(in, "language"))
				return map[string]any{"translated_text": out}, err
			})},
			{MethodName: methodRevise, Handler: structHandler(methodRevise, func(ctx context.Context, svc Service, in map[string]any) (map[string]any, error) {
				out, err := svc.Revise(ctx, stringField(in, "text"), stringField(in, "format"))
				return map[string]any{"revised_text": out}, err
			})},
			{MethodName: methodSmartReply, Handler: structHandler(methodSmartReply, func(ctx context.Context, svc Service, in map[string]any) (map[string]any, error) {
				review, err := svc.SmartReply(ctx, smartReplyFromMap(in))
				return reviewToMap(review), err
			})},
			{MethodName: methodFormats, Handler: structHandler(methodFormats, func(ctx context.Context, svc Service, _ map[string]any) (map[string]any, error) {
				formats, err := svc.Formats(ctx)
				items := make([]any, len(formats))
				for i, f := range formats {
					items[i] = map[string]any{"id": f.ID, "name": f.Name, "description": f.Description}
				}
				return map[string]any{"formats": items}, err
			})},
			{MethodName: methodGenerate, Handler: structHandler(methodGenerate, func(ctx context.Context, svc Service, in map[string]any) (map[string]any, error) {
				text, err := svc.Generate(ctx, GenerateRequest{
					ConversationID:  stringField(in, "conversation_id"),
					UserLastMessage: stringField(in, "user_last_message"),
					Draft:           stringField(in, "draft"),
				})
				return map[string]any{"text": text}, err
			})},
		},
		Metadata: "replydesk/ai.proto",
	}, svc)
}

type structCall func(ctx context.Context, svc Service, in map[string]any) (map[string]any, error)

func structHandler(method string, call structCall) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := &structpb.Struct{}
		if err := dec(in); err != nil {
			return nil, err
		}
		handler := func(ctx context.Context, req any) (any, error) {
			out, err := call(ctx, srv.(Service), req.(*structpb.Struct).AsMap())
			if err != nil {
				return nil, toStatus(err)
			}
			return structpb.NewStruct(out)
		}
		if interceptor == nil {
			return handler(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		return interceptor(ctx, in, info, handler)
	}
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, ErrEmptyInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
