package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"orderengine/internal/engine"
	"orderengine/internal/net"
)

func main() {
	var address string
	var port int
	var verbose bool

	cmd := &cobra.Command{
		Use:   "orderengine-server",
		Short: "Run the single-symbol matching engine over TCP.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			eng := engine.New()
			srv := net.New(address, port, eng)

			go srv.Run(ctx)
			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().StringVar(&address, "address", "0.0.0.0", "address to listen on")
	cmd.Flags().IntVar(&port, "port", 9001, "port to listen on (metrics served on port+1)")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "enable debug logging")

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
