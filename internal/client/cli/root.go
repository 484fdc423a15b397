package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/socialmaster/internal/client/client"
	"github.com/dmitrijs2005/socialmaster/internal/client/config"
	"github.com/spf13/cobra"
)

// Dialer opens a client for the resolved configuration.
type Dialer func(cfg *config.Config) (client.Client, error)

// DialGRPC is the production Dialer.
func DialGRPC(cfg *config.Config) (client.Client, error) {
	return client.NewGRPCClient(cfg.ServerEndpointAddr, cfg.AccessToken)
}

type app struct {
	dial       Dialer
	cfg        *config.Config
	configPath string
	addr       string
	token      string
	timeout    time.Duration
}

// Execute runs the CLI with the production dialer.
func Execute(ctx context.Context) error {
	return NewRootCmd(DialGRPC).ExecuteContext(ctx)
}

// NewRootCmd builds the command tree. dial is called at most once per
// command invocation.
func NewRootCmd(dial Dialer) *cobra.Command {
	a := &app{dial: dial}

	rootCmd := &cobra.Command{
		Use:           "socialmaster",
		Short:         "socialmaster: plan, generate and publish social media posts",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.loadConfig(cmd)
		},
	}

	f := rootCmd.PersistentFlags()
	f.StringVarP(&a.configPath, "config", "c", "", "path to JSON config file")
	f.StringVarP(&a.addr, "addr", "a", "", "server address (host:port)")
	f.StringVarP(&a.token, "token", "t", "", "access token")
	f.DurationVar(&a.timeout, "timeout", 0, "timeout for single requests")

	rootCmd.AddCommand(
		newPingCmd(a),
		newBalanceCmd(a),
		newPostsCmd(a),
		newGenerateCmd(a),
		newProfileCmd(a),
		newPrefsCmd(a),
		newSocialCmd(a),
		newTokenCmd(),
	)

	return rootCmd
}

func (a *app) loadConfig(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.ServerEndpointAddr = a.addr
	}
	if flags.Changed("token") {
		cfg.AccessToken = a.token
	}
	if flags.Changed("timeout") {
		cfg.RequestTimeout = a.timeout
	}
	a.cfg = cfg
	return nil
}

// withClient dials, runs fn and closes the client. When bounded is set the
// context carries the configured request timeout.
func (a *app) withClient(cmd *cobra.Command, bounded bool, fn func(ctx context.Context, c client.Client) error) error {
	if a.cfg == nil {
		if err := a.loadConfig(cmd); err != nil {
			return err
		}
	}

	c, err := a.dial(a.cfg)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", a.cfg.ServerEndpointAddr, err)
	}
	defer c.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if bounded && a.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.RequestTimeout)
		defer cancel()
	}
	return fn(ctx, c)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newPingCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the server is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withClient(cmd, true, func(ctx context.Context, c client.Client) error {
				if err := c.Ping(ctx); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "ok")
				return err
			})
		},
	}
}

func newBalanceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show the token balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withClient(cmd, true, func(ctx context.Context, c client.Client) error {
				b, err := c.Balance(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd, map[string]int64{"balance": b})
			})
		},
	}
}
