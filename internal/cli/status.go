package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/evcraddock/pool-route/internal/store"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the backend connection",
		Long:  "Shows which backend is selected and checks that it answers with the configured credentials.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func runStatus(ctx context.Context, w io.Writer) error {
	if _, err := loadConfig(); err != nil {
		return err
	}

	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(w, "Status:  ✗ cannot open backend (%v)\n", err)
		return nil
	}
	defer a.close()

	fmt.Fprintf(w, "Backend: %s\n", a.backend)
	fmt.Fprintf(w, "Zone:    %s\n", a.loc)

	if a.remote {
		if a.apiKey == "" {
			fmt.Fprintln(w, "API Key: not configured")
		} else {
			prefix := a.apiKey
			if len(prefix) > 8 {
				prefix = prefix[:8]
			}
			fmt.Fprintf(w, "API Key: %s…\n", prefix)
		}
	}

	p, ok := a.store.(store.Pinger)
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		fmt.Fprintf(w, "Status:  ✗ %v\n", err)
		return nil
	}
	fmt.Fprintln(w, "Status:  ✓ connected")
	return nil
}
