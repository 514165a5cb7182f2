package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ticketpin-workers/internal/common/logger"
	"ticketpin-workers/internal/pipeline"
)

// flag name -> environment variable
var envBindings = map[string]string{
	"openai-api-key":   "OPENAI_API_KEY",
	"pinata-jwt":       "PINATA_JWT",
	"image-base-url":   "OPENAI_BASE_URL",
	"image-model":      "TICKETPIN_IMAGE_MODEL",
	"image-size":       "TICKETPIN_IMAGE_SIZE",
	"pinning-base-url": "PINATA_BASE_URL",
	"encoding":         "TICKETPIN_ENCODING",
	"call-timeout":     "TICKETPIN_CALL_TIMEOUT",
	"log-level":        "LOG_LEVEL",
}

func NewCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ticketpin",
		Short:         "Generate a ticket image and pin it to IPFS",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.AddCommand(newRunCmd())
	return rootCmd
}

func newRunCmd() *cobra.Command {
	v := viper.New()

	runCmd := &cobra.Command{
		Use:   "run <requestId> <location> <keyword>",
		Short: "Run one fulfillment and print the encoded content hash as 0x-hex",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFulfillment(cmd, v, pipeline.Request{
				RequestID: args[0],
				Location:  args[1],
				Keyword:   args[2],
			})
		},
	}

	flags := runCmd.Flags()
	flags.String("openai-api-key", "", "Image generation API key")
	flags.String("pinata-jwt", "", "Pinning service JWT")
	flags.String("image-base-url", "", "Image API base URL (default https://api.openai.com/v1)")
	flags.String("image-model", pipeline.DefaultImageModel, "Image model")
	flags.String("image-size", pipeline.DefaultImageSize, "Image size")
	flags.String("pinning-base-url", pipeline.DefaultPinningBaseURL, "Pinning API base URL")
	flags.String("encoding", pipeline.EncodingUTF8, "Result encoding: utf8 or cbor")
	flags.Duration("call-timeout", pipeline.DefaultCallTimeout, "Timeout for each upstream call")
	flags.String("log-level", "error", "Log level")

	for name, env := range envBindings {
		_ = v.BindPFlag(name, flags.Lookup(name))
		_ = v.BindEnv(name, env)
	}

	return runCmd
}

func runFulfillment(cmd *cobra.Command, v *viper.Viper, req pipeline.Request) error {
	log := logger.NewStructured(v.GetString("log-level"), "console", "stderr")

	creds := pipeline.StaticCredentials{
		ImageAPIKey:   v.GetString("openai-api-key"),
		PinningAPIKey: v.GetString("pinata-jwt"),
	}

	callTimeout := resolveCallTimeout(v.GetDuration("call-timeout"))

	p, err := pipeline.Build(pipeline.Config{
		ImageBaseURL:   v.GetString("image-base-url"),
		ImageModel:     v.GetString("image-model"),
		ImageSize:      v.GetString("image-size"),
		PinningBaseURL: v.GetString("pinning-base-url"),
		Encoding:       v.GetString("encoding"),
		CallTimeout:    callTimeout,
	}, creds, log)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, runDeadline(callTimeout))
	defer cancel()

	result, err := p.Run(ctx, req)
	if err != nil {
		if pErr, ok := pipeline.AsError(err); ok {
			return errors.New(pErr.Message)
		}
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), result.Hex())
	return nil
}

func resolveCallTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return pipeline.DefaultCallTimeout
	}
	return d
}

// runDeadline bounds a whole run: both upstream calls plus encoding, with headroom.
func runDeadline(callTimeout time.Duration) time.Duration {
	return 2*callTimeout + 5*time.Second
}
