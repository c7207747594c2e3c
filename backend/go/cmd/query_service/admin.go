package main

import (
	"EnterpriseAgent/backend/go/internal/database/mysql"
	"EnterpriseAgent/backend/go/internal/query_service/store"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print global usage statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, limit, err := openStore()
		if err != nil {
			return err
		}
		defer mysql.Close()
		if dashboard {
			d, err := s.Analytics.Dashboard(cmd.Context(), limit, time.Now())
			if err != nil {
				return err
			}
			return printJSON(cmd, d)
		}
		stats, err := s.Analytics.GlobalStats(cmd.Context(), time.Now())
		if err != nil {
			return err
		}
		return printJSON(cmd, stats)
	},
}

var dashboard bool

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userAddCmd = &cobra.Command{
	Use:   "add [username]",
	Short: "Create a user with an empty quota",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := openStore()
		if err != nil {
			return err
		}
		defer mysql.Close()
		u, err := s.Users.CreateUser(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created user %q with id %d\n", u.Username, u.ID)
		return nil
	},
}

func init() {
	statsCmd.Flags().BoolVar(&dashboard, "dashboard", false, "include most active user and users at limit")
	rootCmd.AddCommand(statsCmd)
	userCmd.AddCommand(userAddCmd)
	rootCmd.AddCommand(userCmd)
}

func openStore() (*store.Store, uint, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, 0, err
	}
	db, err := openDB(cfg)
	if err != nil {
		return nil, 0, err
	}
	limit := uint(cfg.Quota.DailyLimit)
	return store.NewStore(db, limit, cfg.Embedding.Dimension), limit, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
