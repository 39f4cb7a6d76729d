package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/flowboard/internal/client"
	"github.com/alfredjeanlab/flowboard/internal/server"
)

var healthCmd = &cobra.Command{
	Use:     "health",
	Short:   "Check the health of the flowboard server",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		grpcAddr, _ := cmd.Flags().GetString("grpc")

		status, err := dashClient.Health(cmd.Context())
		if err != nil {
			return fmt.Errorf("checking health: %w", err)
		}
		out := map[string]string{"status": status}

		if grpcAddr != "" {
			hc, err := client.NewHealthChecker(grpcAddr)
			if err != nil {
				return err
			}
			defer hc.Close()
			grpcStatus, err := hc.Check(cmd.Context(), server.ServiceName)
			if err != nil {
				return fmt.Errorf("checking gRPC health: %w", err)
			}
			out["grpc"] = grpcStatus
		}

		if jsonOutput {
			if err := printJSON(os.Stdout, out); err != nil {
				return err
			}
		} else {
			fmt.Printf("Health: %s\n", status)
			if g, ok := out["grpc"]; ok {
				fmt.Printf("gRPC:   %s\n", g)
			}
		}

		if status != "ok" {
			return fmt.Errorf("unhealthy: %s", status)
		}
		if g, ok := out["grpc"]; ok && g != "SERVING" {
			return fmt.Errorf("gRPC unhealthy: %s", g)
		}
		return nil
	},
}

func init() {
	healthCmd.Flags().String("grpc", "", "also check the gRPC health service at this address")
}
