package main

import (
	"EnterpriseAgent/backend/go/internal/config"
	"EnterpriseAgent/backend/go/internal/database/mysql"
	"EnterpriseAgent/backend/go/pkg/logger"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "query_service",
	Short: "Quota-limited question answering with semantic search over past exchanges",
	Long: `query_service answers user questions through a generative model, enforces a per-user
daily quota, records every exchange and serves nearest-neighbour search over them.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "query_service: %s\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "path to the YAML config file")
}

// loadConfig 读取配置并初始化全局日志。
func loadConfig() (*config.AppConfig, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.Logger.Level, cfg.Logger.Format)
	return cfg, nil
}

// openDB 连接数据库并迁移表结构。
func openDB(cfg *config.AppConfig) (*gorm.DB, error) {
	db, err := mysql.GetDB(&cfg.Databases.MySQL)
	if err != nil {
		return nil, err
	}
	if err := mysql.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}
	return db, nil
}
