package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aretw0/courseflow"
	"github.com/aretw0/courseflow/internal/cli"
	"github.com/aretw0/courseflow/internal/presentation/tui"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Drive a conversation from the terminal",
	Long: `Starts a session and lets you play the intent layer: /topic, /back and /exit become
function calls, and every display update is printed as it is broadcast.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfigAndLogger(cmd)
		if err != nil {
			return err
		}
		sessionID, _ := cmd.Flags().GetString("session")
		resume, _ := cmd.Flags().GetBool("resume")
		plain, _ := cmd.Flags().GetBool("plain")
		debug, _ := cmd.Flags().GetBool("debug")

		out := cmd.OutOrStdout()
		ctx, stop := cli.ShutdownContext(cmd.Context())
		defer stop()

		app, backend, err := cli.NewApp(ctx, cfg, logger, cli.AppOptions{
			Sink:  cli.DisplaySink(out),
			Debug: debug,
		})
		if err != nil {
			return err
		}
		defer backend.Close()

		opts := []cli.ConsoleOption{
			cli.WithSessionID(sessionID),
			cli.WithResume(resume),
			cli.WithConsoleLogger(logger),
		}

		fd := int(os.Stdout.Fd())
		if !plain && term.IsTerminal(fd) {
			width := 100
			if w, _, err := term.GetSize(fd); err == nil && w > 0 && w < width {
				width = w
			}
			tui.PrintBanner(out, app.Content.ServiceName(), courseflow.Version)
			if greeting := app.Content.Initial.Greeting; greeting != "" {
				fmt.Fprintf(out, "%s\n\n", greeting)
			}
			opts = append(opts, cli.WithRenderer(tui.NewRenderer(width)))
		}

		return cli.NewConsole(app.Service, cmd.InOrStdin(), out, opts...).Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(consoleCmd)
	consoleCmd.Flags().String("session", "console", "Session ID to drive")
	consoleCmd.Flags().Bool("resume", false, "Continue the stored session instead of starting over")
	consoleCmd.Flags().Bool("plain", false, "Print raw markdown even on a terminal")
	consoleCmd.Flags().Bool("debug", false, "Log every lifecycle event")
}
