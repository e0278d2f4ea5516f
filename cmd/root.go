package main

import (
	"github.com/lvdashuaibi/littlerank/config"
	"github.com/lvdashuaibi/littlerank/internal/logging"
	"github.com/spf13/cobra"
)

var flagConfig string

var rootCmd = &cobra.Command{
	Use:          "littlerank",
	Short:        "Link sharing ranking service",
	Long:         "littlerank stores posted links, counts votes inside a voting window and ranks articles globally and per group.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "config/config.yaml", "配置文件路径")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(postCmd)
	rootCmd.AddCommand(voteCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(groupCmd)
	rootCmd.AddCommand(groupListCmd)
	rootCmd.AddCommand(archivedCmd)
}

// loadConfig 加载配置并初始化日志
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(flagConfig)
	if err != nil {
		return nil, err
	}
	logging.InitLogger(cfg.Log.Level, cfg.Log.Format)
	return cfg, nil
}
