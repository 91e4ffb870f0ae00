package main

import (
	"strings"

	"github.com/danmuck/packetd/internal/server"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var (
		configPath string
		listen     string
		admin      string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Accept client connections and process packets",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := server.DefaultServiceConfig()
			if strings.TrimSpace(configPath) != "" {
				loaded, err := loadServiceConfig(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if cmd.Flags().Changed("listen") {
				cfg.ListenAddr = strings.TrimSpace(listen)
			}
			if cmd.Flags().Changed("admin") {
				cfg.AdminAddr = strings.TrimSpace(admin)
			}
			return server.NewServiceWithConfig(cfg).Run()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "TOML config file")
	cmd.Flags().StringVarP(&listen, "listen", "l", "", "packet listen address (overrides config)")
	cmd.Flags().StringVar(&admin, "admin", "", "admin HTTP address (overrides config)")
	return cmd
}
