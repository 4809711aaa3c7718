package cli

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"github.com/tOgg1/replydesk/internal/ai"
)

type echoService struct {
	ai.Unavailable
}

func (echoService) Translate(_ context.Context, text, language string) (string, error) {
	return language + ": " + text, nil
}

func TestServeAssist(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- serveAssist(ctx, lis, echoService{}) }()

	client, err := ai.DialGRPC("passthrough:///bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	require.NoError(t, err)

	out, err := client.Translate(ctx, "hola", "en")
	require.NoError(t, err)
	assert.Equal(t, "en: hola", out)

	_, err = client.Revise(ctx, "hola", "formal")
	assert.Error(t, err)

	require.NoError(t, client.Close())
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServeRefusesGRPCTransport(t *testing.T) {
	testEnv(t)
	t.Setenv("REPLYDESK_AI_TRANSPORT", "grpc")
	t.Setenv("REPLYDESK_AI_GRPC_ADDR", "127.0.0.1:1")

	_, err := runCLI(t, "", "serve")
	var preflight *PreflightError
	require.ErrorAs(t, err, &preflight)
	assert.Contains(t, preflight.Message, "http or genai")
}
