package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/internal/server"
	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/pkg/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the audit API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("listen")
		dbPath, _ := cmd.Flags().GetString("dbpath")

		logger, err := openAuditLogger()
		if err != nil {
			return err
		}

		var db *storage.DB
		if dbPath != "" {
			db, err = storage.Open(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()
		}

		srv := server.New(logger, db,
			viper.GetString("server.username"),
			viper.GetString("server.password"))
		return srv.Start(addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", ":8080", "HTTP listen address")
	serveCmd.Flags().String("dbpath", "", "Path to SQLite DB file (record endpoints disabled when empty)")
}
