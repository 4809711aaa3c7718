// Package cli provides the reply-assist gRPC server command.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/tOgg1/replydesk/internal/ai"
	"github.com/tOgg1/replydesk/internal/logging"
)

var serveListen string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "address to listen on (default: server.listen)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the reply-assist API over gRPC",
	Long: `Serve the reply-assist API over gRPC, backed by the configured
HTTP or GenAI transport. Composers elsewhere can then use ai.transport=grpc.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		if cfg.AI.Transport == ai.TransportGRPC {
			return &PreflightError{
				Message:  "serve needs an http or genai backend",
				Hint:     "ai.transport is grpc, which would forward requests to itself",
				NextStep: "REPLYDESK_AI_TRANSPORT=genai replydesk serve",
			}
		}
		addr := serveListen
		if addr == "" {
			addr = cfg.Server.Listen
		}

		ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
		defer stop()

		svc, closeAI, err := openAI(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = closeAI() }()

		lis, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", addr, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on %s\n", ai.ServiceName, lis.Addr())
		return serveAssist(ctx, lis, svc)
	},
}

// serveAssist serves svc on lis until ctx is done, then stops gracefully.
func serveAssist(ctx context.Context, lis net.Listener, svc ai.Service) error {
	logger := logging.Component("serve")
	server := grpc.NewServer(grpc.UnaryInterceptor(logUnary))
	ai.RegisterServer(server, svc)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", lis.Addr().String()).Msg("reply-assist server listening")
		if err := server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("reply-assist server stopping")
		server.GracefulStop()
		return nil
	})
	return g.Wait()
}

func logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	resp, err := handler(ctx, req)
	logger := logging.Component("serve")
	event := logger.Debug()
	if err != nil {
		event = logger.Warn().Err(err)
	}
	event.Str("method", info.FullMethod).Msg("request")
	return resp, err
}
