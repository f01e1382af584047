package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/amissa/backend/internal/app"
	"github.com/amissa/backend/internal/config"
	"github.com/amissa/backend/internal/logging"
	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "amissactl",
		Short:         "Operator tasks for the mass-intention backend",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup()
		},
	}
	root.AddCommand(generateCmd())
	root.AddCommand(payoutsCmd())
	root.AddCommand(tokenCmd())
	return root
}

// withApp loads the configuration, builds the app and runs fn with it.
func withApp(ctx context.Context, fn func(a *app.App) error) error {
	a, err := app.New(ctx, config.Load())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
