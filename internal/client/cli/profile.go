package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/socialmaster/internal/api"
	"github.com/dmitrijs2005/socialmaster/internal/client/client"
	"github.com/spf13/cobra"
)

func newProfileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or update the business profile used for generation",
	}

	get := &cobra.Command{
		Use:   "get",
		Short: "Show the profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withClient(cmd, true, func(ctx context.Context, c client.Client) error {
				p, err := c.GetProfile(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd, p)
			})
		},
	}

	var file string
	set := &cobra.Command{
		Use:   "set",
		Short: "Replace the profile from a JSON document",
		Long:  `Replace the profile from a JSON document ({"email": ..., "metadata": {...}}). Use --file - to read stdin.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := readProfile(cmd, file)
			if err != nil {
				return err
			}
			return a.withClient(cmd, true, func(ctx context.Context, c client.Client) error {
				saved, err := c.UpdateProfile(ctx, p)
				if err != nil {
					return err
				}
				return printJSON(cmd, saved)
			})
		},
	}
	set.Flags().StringVarP(&file, "file", "f", "", "profile JSON file (- for stdin)")
	_ = set.MarkFlagRequired("file")

	cmd.AddCommand(get, set)
	return cmd
}

func readProfile(cmd *cobra.Command, path string) (api.Profile, error) {
	var (
		p    api.Profile
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return p, fmt.Errorf("read profile: %w", err)
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse profile: %w", err)
	}
	return p, nil
}
