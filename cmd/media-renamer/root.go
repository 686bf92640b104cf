package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/stevenhuff/media-renamer/internal/app"
)

func newRootCommand() *cobra.Command {
	var cfgFileName string

	serveCmd := newServeCommand(&cfgFileName)

	rootCmd := &cobra.Command{
		Use:           "media-renamer",
		Short:         "Organize downloaded media folders from a web page",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serveCmd.RunE,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFileName, "config", "c", "config.yml", "Path to config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newQueueCommand(&cfgFileName))

	return rootCmd
}

func newServeCommand(cfgFileName *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web interface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app.New(*cfgFileName)
			if err := a.Start(); err != nil {
				return err
			}

			c := make(chan os.Signal, 1)
			signal.Notify(c, os.Interrupt, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1)
			defer signal.Stop(c)

			for sig := range c {
				if sig == syscall.SIGUSR1 {
					a.Refresh()

					continue
				}

				fmt.Fprintln(cmd.OutOrStdout(), "Received termination signal. Shutting down...")

				break
			}

			a.Stop()
			time.Sleep(time.Second)
			fmt.Fprintln(cmd.OutOrStdout(), "done")

			return nil
		},
	}
}

func newQueueCommand(cfgFileName *string) *cobra.Command {
	return &cobra.Command{
		Use:   "queue",
		Short: "List the folders waiting in the queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := app.New(*cfgFileName).Queue(cmd.Context())
			if err != nil {
				return err
			}

			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")

				return nil
			}

			rows := make([][]string, 0, len(items))
			for i, item := range items {
				rows = append(rows, []string{strconv.Itoa(i + 1), item.Name, strconv.Itoa(item.Files), item.Hint})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"#", "Folder", "Files", "Hint"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft},
			))

			return nil
		},
	}
}
