package main

import (
	"connect4/server"

	"github.com/spf13/cobra"
)

func runServe(cmd *cobra.Command, args []string) error {
	serverCfg := cfg.Server
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		serverCfg.Addr = addr
	}
	return server.New(serverCfg).Run(cmd.Context())
}
