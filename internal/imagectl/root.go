package imagectl

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// Execute runs the CLI with the given arguments.
func Execute(args []string) error {
	root := buildRootCmd()
	root.SetArgs(args)
	return root.Execute()
}

// buildRootCmd constructs the Cobra command tree.
func buildRootCmd() *cobra.Command {
	var (
		server  string
		timeout time.Duration
	)
	root := &cobra.Command{
		Use:           "imagectl",
		Short:         "Client for a running imaged daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&server, "server", envOr("IMAGECTL_SERVER", "http://127.0.0.1:8080"), "imaged base URL")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Minute, "Per-command timeout")

	newClient := func() *Client { return NewClient(server) }
	cmdCtx := func() (context.Context, context.CancelFunc) {
		return context.WithTimeout(context.Background(), timeout)
	}

	var p GenerateParams
	var out string
	var preset bool
	genCmd := &cobra.Command{
		Use:     "generate <prompt>",
		Short:   "Generate or edit an image",
		Example: "  imagectl generate \"a red fox\" --out fox.png --seed 42\n  imagectl generate \"wider\" --image in.png --out out.png",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p.Prompt = args[0]
			ctx, cancel := cmdCtx()
			defer cancel()
			resp, err := newClient().Generate(ctx, p, preset)
			if err != nil {
				return err
			}
			if err := SaveDataURI(resp.Image, out); err != nil {
				return err
			}
			fmt.Printf("saved %s (seed=%d backend=%s quantization=%s %dx%d)\n",
				out, resp.Seed, resp.Backend, resp.Quantization, resp.Width, resp.Height)
			return nil
		},
	}
	genCmd.Flags().StringVar(&out, "out", "out.png", "Output file")
	genCmd.Flags().StringVar(&p.NegativePrompt, "negative", "", "Negative prompt")
	genCmd.Flags().IntVar(&p.Width, "width", 0, "Output width")
	genCmd.Flags().IntVar(&p.Height, "height", 0, "Output height")
	genCmd.Flags().StringVar(&p.Resolution, "resolution", "", "Aspect preset (implies /generate_preset)")
	genCmd.Flags().IntVar(&p.Steps, "steps", 0, "Inference steps")
	genCmd.Flags().Int64Var(&p.Seed, "seed", -1, "Seed (-1 for auto)")
	genCmd.Flags().StringSliceVar(&p.ImagePaths, "image", nil, "Input image file (repeatable)")
	genCmd.Flags().BoolVar(&preset, "preset", false, "Use the resolution-preset endpoint")
	root.AddCommand(genCmd)

	var up GenerateParams
	var upOut string
	upCmd := &cobra.Command{
		Use:   "upscale <image>",
		Short: "Upscale an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			up.ImagePaths = []string{args[0]}
			ctx, cancel := cmdCtx()
			defer cancel()
			resp, err := newClient().Upscale(ctx, up)
			if err != nil {
				return err
			}
			if err := SaveDataURI(resp.Image, upOut); err != nil {
				return err
			}
			fmt.Printf("saved %s (%dx%d -> %dx%d, x%d)\n", upOut,
				resp.OriginalSize[0], resp.OriginalSize[1],
				resp.UpscaledSize[0], resp.UpscaledSize[1], resp.Scale)
			return nil
		},
	}
	upCmd.Flags().StringVar(&upOut, "out", "upscaled.png", "Output file")
	upCmd.Flags().IntVar(&up.Scale, "scale", 0, "Scale factor (0 = model default)")
	upCmd.Flags().StringVar(&up.Prompt, "prompt", "", "Optional guidance prompt")
	root.AddCommand(upCmd)

	var und GenerateParams
	undCmd := &cobra.Command{
		Use:   "understand <image> <question>",
		Short: "Ask a question about an image",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			und.ImagePaths = []string{args[0]}
			und.Prompt = args[1]
			ctx, cancel := cmdCtx()
			defer cancel()
			resp, err := newClient().Understand(ctx, und)
			if err != nil {
				return err
			}
			fmt.Println(resp.Response)
			return nil
		},
	}
	root.AddCommand(undCmd)

	root.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print session diagnostics as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cmdCtx()
			defer cancel()
			st, err := newClient().Status(ctx)
			if err != nil {
				return err
			}
			return printJSON(st)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "health",
		Short: "Print daemon health as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cmdCtx()
			defer cancel()
			h, err := newClient().Health(ctx)
			if err != nil {
				return err
			}
			return printJSON(h)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "wait",
		Short: "Block until the daemon reports ready",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cmdCtx()
			defer cancel()
			return newClient().WaitReady(ctx, timeout)
		},
	})

	// completion command
	completionCmd := &cobra.Command{Use: "completion", Short: "Generate the autocompletion script for the specified shell"}
	completionCmd.AddCommand(&cobra.Command{Use: "bash", Short: "Bash completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenBashCompletion(os.Stdout) }})
	completionCmd.AddCommand(&cobra.Command{Use: "zsh", Short: "Zsh completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenZshCompletion(os.Stdout) }})
	completionCmd.AddCommand(&cobra.Command{Use: "fish", Short: "Fish completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenFishCompletion(os.Stdout, true) }})
	root.AddCommand(completionCmd)

	return root
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
