package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/lvdashuaibi/littlerank/internal/model"
	"github.com/spf13/cobra"
)

var (
	flagPage  int
	flagOrder string
)

var postCmd = &cobra.Command{
	Use:   "post <author> <title> <link>",
	Short: "Post a new article",
	Args:  cobra.ExactArgs(3),
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		id, err := a.service.PostArticle(ctx, args[0], args[1], args[2])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), map[string]string{"id": id})
	}),
}

var voteCmd = &cobra.Command{
	Use:   "vote <user> <article-id>",
	Short: "Vote for an article",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		outcome, err := a.service.Vote(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), map[string]string{"outcome": outcome.String()})
	}),
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List one page of articles",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		order, err := model.ParseOrder(flagOrder)
		if err != nil {
			return err
		}
		views, err := a.service.ListArticles(ctx, flagPage, order)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), views)
	}),
}

var groupCmd = &cobra.Command{
	Use:   "group <article-id> <group>...",
	Short: "Add an article to one or more groups",
	Args:  cobra.MinimumNArgs(2),
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		return a.service.AddToGroup(ctx, args[0], args[1:])
	}),
}

var groupListCmd = &cobra.Command{
	Use:   "group-list <group>",
	Short: "List one page of articles in a group",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		order, err := model.ParseOrder(flagOrder)
		if err != nil {
			return err
		}
		views, err := a.service.ListGroupArticles(ctx, args[0], flagPage, order)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), views)
	}),
}

var archivedCmd = &cobra.Command{
	Use:   "archived <article-id>",
	Short: "Show an article from the MySQL archive",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		if a.mysql == nil {
			return errors.New("未配置MySQL归档")
		}
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("%w: 文章ID %q", model.ErrInvalidArgument, args[0])
		}
		article, err := a.mysql.GetArchivedArticle(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), article.View())
	}),
}

func init() {
	for _, cmd := range []*cobra.Command{listCmd, groupListCmd} {
		cmd.Flags().IntVar(&flagPage, "page", 1, "页码，从1开始")
		cmd.Flags().StringVar(&flagOrder, "order", "score", "排序方式: score 或 time")
	}
}

// withApp 加载配置并创建依赖，命令结束后释放
func withApp(run func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()
		return run(ctx, a, cmd, args)
	}
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
