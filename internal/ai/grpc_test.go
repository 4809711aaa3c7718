package ai

import (
	"context"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"
)

// stubService answers deterministically for transport tests.
type stubService struct {
	calls map[string]int
	err   error
}

func newStubService() *stubService { return &stubService{calls: map[string]int{}} }

func (s *stubService) Translate(_ context.Context, text, language string) (string, error) {
	s.calls["translate"]++
	if s.err != nil {
		return "", s.err
	}
	return "[" + language + "] " + text, nil
}

func (s *stubService) Revise(_ context.Context, text, formatID string) (string, error) {
	s.calls["revise"]++
	if s.err != nil {
		return "", s.err
	}
	return strings.ToUpper(text), nil
}

func (s *stubService) SmartReply(_ context.Context, req SmartReplyRequest) (Review, error) {
	s.calls["smart_reply"]++
	if s.err != nil {
		return Review{}, s.err
	}
	return Review{
		OriginalText:         req.AgentMessage,
		ImprovedText:         "I will fix this right away.",
		DetectedUserLanguage: "en",
		WasTranslated:        req.TargetLanguage != "",
		Improvements:         []string{"tone: " + req.Tone},
	}, nil
}

func (s *stubService) Formats(context.Context) ([]Format, error) {
	s.calls["formats"]++
	if s.err != nil {
		return nil, s.err
	}
	return []Format{{ID: "formal", Name: "Formal", Description: "Polite"}}, nil
}

func (s *stubService) Generate(_ context.Context, req GenerateRequest) (string, error) {
	s.calls["generate"]++
	if s.err != nil {
		return "", s.err
	}
	return "Thanks for writing in about: " + req.UserLastMessage, nil
}

func startBufconnServer(t *testing.T, svc Service) *GRPCClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	RegisterServer(server, svc)
	go func() { _ = server.Serve(lis) }()

	client, err := DialGRPC("passthrough:///bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.Close()
		server.Stop()
	})
	return client
}

func TestGRPCRoundTrip(t *testing.T) {
	client := startBufconnServer(t, newStubService())
	ctx := context.Background()

	out, err := client.Translate(ctx, "hola", "en")
	require.NoError(t, err)
	require.Equal(t, "[en] hola", out)

	out, err = client.Revise(ctx, "hi", "formal")
	require.NoError(t, err)
	require.Equal(t, "HI", out)

	review, err := client.SmartReply(ctx, SmartReplyRequest{AgentMessage: "ok ill fix it", Tone: "friendly", TargetLanguage: "es"})
	require.NoError(t, err)
	require.Equal(t, Review{
		OriginalText:         "ok ill fix it",
		ImprovedText:         "I will fix this right away.",
		DetectedUserLanguage: "en",
		WasTranslated:        true,
		Improvements:         []string{"tone: friendly"},
	}, review)

	formats, err := client.Formats(ctx)
	require.NoError(t, err)
	require.Equal(t, []Format{{ID: "formal", Name: "Formal", Description: "Polite"}}, formats)

	draft, err := client.Generate(ctx, GenerateRequest{UserLastMessage: "refund"})
	require.NoError(t, err)
	require.Equal(t, "Thanks for writing in about: refund", draft)
}

func TestGRPCMapsErrors(t *testing.T) {
	stub := newStubService()
	stub.err = ErrUnavailable
	client := startBufconnServer(t, stub)

	_, err := client.Translate(context.Background(), "hola", "en")
	require.ErrorIs(t, err, ErrUnavailable)

	_, err = client.Translate(context.Background(), "", "en")
	require.ErrorIs(t, err, ErrEmptyInput)
}
