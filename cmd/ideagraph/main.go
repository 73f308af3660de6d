package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/d60-Lab/ideagraph/config"
	"github.com/d60-Lab/ideagraph/pkg/logger"
)

func main() {
	root := &cobra.Command{
		Use:           "ideagraph",
		Short:         "Idea sharing backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), migrateCmd(), reconcileCmd(), benchCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig 读取配置并初始化全局 logger
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(cfg.Log.Env, cfg.Log.Level); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, nil
}
