package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dmitrijs2005/socialmaster/internal/api"
	"github.com/dmitrijs2005/socialmaster/internal/client/client"
	"github.com/spf13/cobra"
)

func newPostsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "Inspect and manage scheduled posts",
	}

	cmd.AddCommand(
		newPostsListCmd(a),
		newPostCmd(a, "get", "Show the post for a date", client.Client.GetPost),
		newPostsEditCmd(a),
		newPostCmd(a, "regen-image", "Generate a new image for a post", client.Client.RegenerateImage),
		newPostCmd(a, "regen-text", "Generate new text for a post", client.Client.RegenerateContent),
		newPostCmd(a, "publish", "Publish a post to the connected accounts now", client.Client.PublishPost),
		newPostsStatsCmd(a),
	)
	return cmd
}

func newPostsListCmd(a *app) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List posts in a date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withClient(cmd, true, func(ctx context.Context, c client.Client) error {
				posts, err := c.ListPosts(ctx, from, to)
				if err != nil {
					return err
				}
				if posts == nil {
					posts = []api.Post{}
				}
				return printJSON(cmd, posts)
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

// newPostCmd builds a command that takes a single DATE argument and prints
// the post returned by call.
func newPostCmd(a *app, use, short string, call func(client.Client, context.Context, string) (api.Post, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " DATE",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd, true, func(ctx context.Context, c client.Client) error {
				p, err := call(c, ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, p)
			})
		},
	}
}

func newPostsEditCmd(a *app) *cobra.Command {
	var content, file string

	cmd := &cobra.Command{
		Use:   "edit DATE",
		Short: "Replace the text of a post",
		Long:  "Replace the text of a post. The text comes from --content, --file, or is read from stdin until an empty line.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := resolveContent(cmd, content, file)
			if err != nil {
				return err
			}
			if strings.TrimSpace(text) == "" {
				return errors.New("content must not be empty")
			}
			return a.withClient(cmd, true, func(ctx context.Context, c client.Client) error {
				p, err := c.UpdatePostContent(ctx, args[0], text)
				if err != nil {
					return err
				}
				return printJSON(cmd, p)
			})
		},
	}
	cmd.Flags().StringVar(&content, "content", "", "new post text")
	cmd.Flags().StringVar(&file, "file", "", "read new post text from file")
	cmd.MarkFlagsMutuallyExclusive("content", "file")
	return cmd
}

func resolveContent(cmd *cobra.Command, content, file string) (string, error) {
	switch {
	case content != "":
		return content, nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", file, err)
		}
		return string(b), nil
	default:
		return GetMultiline(bufio.NewReader(cmd.InOrStdin()), "Enter post text", cmd.ErrOrStderr())
	}
}

func newPostsStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show post counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withClient(cmd, true, func(ctx context.Context, c client.Client) error {
				s, err := c.Stats(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd, s)
			})
		},
	}
}
