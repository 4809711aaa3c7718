// Package cli provides reply-assist commands for scripting.
package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tOgg1/replydesk/internal/ai"
)

var (
	transformLang    string
	transformFormat  string
	transformTone    string
	transformUserMsg string
	transformConvID  string
	smartReplyPlain  bool
)

func init() {
	rootCmd.AddCommand(transformCmd)
	transformCmd.AddCommand(translateCmd, reviseCmd, generateCmd, smartReplyCmd, formatsCmd, languagesCmd)

	translateCmd.Flags().StringVarP(&transformLang, "lang", "l", "", "target language code (required)")
	reviseCmd.Flags().StringVarP(&transformFormat, "format", "f", "", "revision format id (required)")
	generateCmd.Flags().StringVar(&transformConvID, "conversation", "", "conversation id (default: current context)")
	generateCmd.Flags().StringVar(&transformUserMsg, "user-message", "", "customer's last message")
	smartReplyCmd.Flags().StringVar(&transformTone, "tone", "", "reply tone")
	smartReplyCmd.Flags().StringVarP(&transformLang, "lang", "l", "", "target language code")
	smartReplyCmd.Flags().StringVar(&transformUserMsg, "user-message", "", "customer's last message")
	smartReplyCmd.Flags().BoolVar(&smartReplyPlain, "plain", false, "print only the improved text")
}

var transformCmd = &cobra.Command{
	Use:     "transform",
	Aliases: []string{"ai"},
	Short:   "Run reply-assist transforms on text",
	Long: `Run the composer's reply-assist transforms outside the TUI.

Input is taken from the arguments, or from stdin when none are given.`,
}

var translateCmd = &cobra.Command{
	Use:   "translate [text...]",
	Short: "Translate text",
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(transformLang) == "" {
			return &PreflightError{Message: "--lang is required", NextStep: "replydesk transform languages"}
		}
		return runTransform(cmd, args, func(ctx context.Context, svc ai.Service, text string) (string, error) {
			return svc.Translate(ctx, text, transformLang)
		})
	},
}

var reviseCmd = &cobra.Command{
	Use:   "revise [text...]",
	Short: "Revise text into a format",
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(transformFormat) == "" {
			return &PreflightError{Message: "--format is required", NextStep: "replydesk transform formats"}
		}
		return runTransform(cmd, args, func(ctx context.Context, svc ai.Service, text string) (string, error) {
			return svc.Revise(ctx, text, transformFormat)
		})
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate [draft...]",
	Short: "Draft a reply",
	Long:  "Draft a reply for a conversation. An existing draft may be passed as input.",
	RunE: func(cmd *cobra.Command, args []string) error {
		draft := ""
		if len(args) > 0 {
			draft = strings.Join(args, " ")
		}
		req := ai.GenerateRequest{ConversationID: transformConvID, UserLastMessage: transformUserMsg, Draft: draft}
		if req.ConversationID == "" {
			if ctx, err := contextStore(GetConfig()).Load(); err == nil {
				req.ConversationID = ctx.ConversationID
			}
		}
		return withAI(cmd, func(ctx context.Context, svc ai.Service) error {
			text, err := svc.Generate(ctx, req)
			if err != nil {
				return fmt.Errorf("generate: %w", err)
			}
			return writeText(cmd, text)
		})
	},
}

var smartReplyCmd = &cobra.Command{
	Use:   "smart-reply [text...]",
	Short: "Review a reply before sending",
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(cmd, args)
		if err != nil {
			return err
		}
		req := ai.SmartReplyRequest{
			AgentMessage:    text,
			UserLastMessage: transformUserMsg,
			Tone:            transformTone,
			TargetLanguage:  transformLang,
		}
		return withAI(cmd, func(ctx context.Context, svc ai.Service) error {
			review, err := svc.SmartReply(ctx, req)
			if err != nil {
				return fmt.Errorf("smart reply: %w", err)
			}
			out := cmd.OutOrStdout()
			if IsJSONOutput() {
				return WriteOutput(out, review)
			}
			if smartReplyPlain {
				fmt.Fprintln(out, review.ImprovedText)
				return nil
			}
			fmt.Fprintf(out, "Original:\n  %s\n\nImproved:\n  %s\n", review.OriginalText, review.ImprovedText)
			if review.WasTranslated {
				fmt.Fprintf(out, "\nTranslated from %s to %s.\n",
					ai.LanguageName(review.DetectedAgentLanguage), ai.LanguageName(review.DetectedUserLanguage))
			}
			if len(review.Improvements) > 0 {
				fmt.Fprintln(out, "\nImprovements:")
				for _, item := range review.Improvements {
					fmt.Fprintf(out, "  - %s\n", item)
				}
			}
			return nil
		})
	},
}

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List revision formats",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAI(cmd, func(ctx context.Context, svc ai.Service) error {
			formats, err := svc.Formats(ctx)
			if err != nil {
				return fmt.Errorf("list formats: %w", err)
			}
			if IsJSONOutput() {
				return WriteOutput(cmd.OutOrStdout(), formats)
			}
			rows := make([][]string, 0, len(formats))
			for _, f := range formats {
				rows = append(rows, []string{f.ID, f.Name, f.Description})
			}
			return writeTable(cmd.OutOrStdout(), []string{"ID", "NAME", "DESCRIPTION"}, rows)
		})
	},
}

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List translation languages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if IsJSONOutput() {
			return WriteOutput(cmd.OutOrStdout(), ai.Languages)
		}
		rows := make([][]string, 0, len(ai.Languages))
		for _, l := range ai.Languages {
			rows = append(rows, []string{l.Code, l.Name})
		}
		return writeTable(cmd.OutOrStdout(), []string{"CODE", "NAME"}, rows)
	},
}

type textTransform func(ctx context.Context, svc ai.Service, text string) (string, error)

func runTransform(cmd *cobra.Command, args []string, fn textTransform) error {
	text, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	return withAI(cmd, func(ctx context.Context, svc ai.Service) error {
		out, err := fn(ctx, svc, text)
		if err != nil {
			return fmt.Errorf("%s: %w", cmd.Name(), err)
		}
		return writeText(cmd, out)
	})
}

func withAI(cmd *cobra.Command, fn func(ctx context.Context, svc ai.Service) error) error {
	cfg := GetConfig()
	ctx := commandContext(cmd)
	if cfg.AI.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.AI.RequestTimeout)
		defer cancel()
	}

	svc, closeAI, err := openAI(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeAI() }()
	return fn(ctx, svc)
}

func writeText(cmd *cobra.Command, text string) error {
	if IsJSONOutput() {
		return WriteOutput(cmd.OutOrStdout(), map[string]string{"text": text})
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), text)
	return err
}
