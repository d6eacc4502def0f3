// Command forgectl is the operator CLI for a running mythicforge server.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	server string
	key    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "forgectl",
		Short:        "Administer a mythicforge server",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.server, "server", envOr("FORGECTL_SERVER", "http://127.0.0.1:8080"), "mythicforge base url")
	cmd.PersistentFlags().StringVar(&opts.key, "key", os.Getenv("FORGE_BRIDGE_KEY"), "bridge key sent as X-Forge-Key")

	cmd.AddCommand(
		newCancelCmd(opts),
		newStatusCmd(opts),
		newBindCmd(opts),
		newArmCmd(opts),
		newUnbindCmd(opts),
		newBindingsCmd(opts),
		newReloadCmd(opts),
	)
	return cmd
}

func newCancelCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <owner>",
		Short: "Cancel the owner's forge session (refunds unless already complete)",
		Args:  cobra.ExactArgs(1),
		RunE: withClient(opts, func(ctx context.Context, c *apiClient, args []string) (json.RawMessage, error) {
			return c.cancel(ctx, args[0])
		}),
	}
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <owner>",
		Short: "Show the owner's forge session state and progress",
		Args:  cobra.ExactArgs(1),
		RunE: withClient(opts, func(ctx context.Context, c *apiClient, args []string) (json.RawMessage, error) {
			return c.status(ctx, args[0])
		}),
	}
}

func newBindCmd(opts *rootOptions) *cobra.Command {
	var b bindingBody
	cmd := &cobra.Command{
		Use:   "bind <npc>",
		Short: "Bind an npc to a recipe set",
		Args:  cobra.ExactArgs(1),
		RunE: withClient(opts, func(ctx context.Context, c *apiClient, args []string) (json.RawMessage, error) {
			b.NpcID = args[0]
			return c.bind(ctx, b)
		}),
	}
	bindingFlags(cmd, &b)
	return cmd
}

func newArmCmd(opts *rootOptions) *cobra.Command {
	var b bindingBody
	cmd := &cobra.Command{
		Use:   "arm <admin>",
		Short: "Bind whichever npc the admin interacts with next",
		Args:  cobra.ExactArgs(1),
		RunE: withClient(opts, func(ctx context.Context, c *apiClient, args []string) (json.RawMessage, error) {
			b.AdminID = args[0]
			return c.arm(ctx, b)
		}),
	}
	bindingFlags(cmd, &b)
	return cmd
}

func bindingFlags(cmd *cobra.Command, b *bindingBody) {
	cmd.Flags().StringVar(&b.RecipeSetID, "set", "", "recipe set id")
	cmd.Flags().Float64Var(&b.InteractionRadius, "radius", 0, "interaction radius in blocks (0 = unlimited)")
	cmd.Flags().IntVar(&b.CooldownSeconds, "cooldown", 0, "per-owner cooldown after completion, in seconds")
	_ = cmd.MarkFlagRequired("set")
}

func newUnbindCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unbind <npc>",
		Short: "Remove an npc binding; sessions on it fail at the next tick",
		Args:  cobra.ExactArgs(1),
		RunE: withClient(opts, func(ctx context.Context, c *apiClient, args []string) (json.RawMessage, error) {
			return c.unbind(ctx, args[0])
		}),
	}
}

func newBindingsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "bindings",
		Short: "List the active npc bindings",
		Args:  cobra.NoArgs,
		RunE: withClient(opts, func(ctx context.Context, c *apiClient, _ []string) (json.RawMessage, error) {
			return c.bindings(ctx)
		}),
	}
}

func newReloadCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Re-read recipes and bindings from the server's forge.yaml",
		Args:  cobra.NoArgs,
		RunE: withClient(opts, func(ctx context.Context, c *apiClient, _ []string) (json.RawMessage, error) {
			return c.reload(ctx)
		}),
	}
}

type callFunc func(ctx context.Context, c *apiClient, args []string) (json.RawMessage, error)

func withClient(opts *rootOptions, call callFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		c, err := newAPIClient(opts.server, opts.key)
		if err != nil {
			return err
		}
		out, err := call(cmd.Context(), c, args)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), out)
	}
}

func printJSON(w io.Writer, raw json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		_, werr := fmt.Fprintln(w, string(raw))
		return werr
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
