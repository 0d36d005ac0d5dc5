package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/advisim/advisim/internal/ports"
	"github.com/advisim/advisim/internal/speech/client"
)

func speakCmd() *cobra.Command {
	var (
		gatewayURL string
		voice      string
		speed      float64
		output     string
	)

	cmd := &cobra.Command{
		Use:   "speak [text...]",
		Short: "Render an utterance through a running speech gateway",
		Long: `Connect to a speech gateway, request synthesis of the given text
and write the streamed audio to a file or stdout.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")

			out := os.Stdout
			if output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				defer f.Close()
				out = f
			}

			c := client.New(gatewayURL, client.NewWriterSink(out), ports.SynthesisOptions{
				Voice: voice,
				Speed: speed,
			})

			done := make(chan struct{})
			c.OnSpeechEnd(func() { close(done) })

			ctx := cmd.Context()
			if err := c.Connect(ctx); err != nil {
				return fmt.Errorf("connect to gateway: %w", err)
			}
			defer c.Disconnect()

			if err := c.Speak(ctx, text, nil); err != nil {
				return fmt.Errorf("speak: %w", err)
			}

			select {
			case <-done:
			case <-time.After(2 * time.Minute):
				return fmt.Errorf("timed out waiting for the utterance to finish")
			case <-ctx.Done():
				return ctx.Err()
			}

			if output != "-" {
				fmt.Fprintf(os.Stderr, "wrote %s\n", output)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&gatewayURL, "gateway", "ws://localhost:8080/api/v1/speech/ws", "speech gateway WebSocket URL")
	cmd.Flags().StringVar(&voice, "voice", "", "voice override")
	cmd.Flags().Float64Var(&speed, "speed", 1.0, "playback speed (0.25-4.0)")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "output file ('-' for stdout)")

	return cmd
}
