package client

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthChecker queries the gRPC health service of a flowboard server.
type HealthChecker struct {
	conn   *grpc.ClientConn
	client healthpb.HealthClient
}

// NewHealthChecker connects to the given gRPC address.
func NewHealthChecker(addr string) (*HealthChecker, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial: %w", err)
	}
	return &HealthChecker{conn: conn, client: healthpb.NewHealthClient(conn)}, nil
}

// Check returns the serving status of service ("" for the whole server).
func (h *HealthChecker) Check(ctx context.Context, service string) (string, error) {
	resp, err := h.client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return "", err
	}
	return resp.GetStatus().String(), nil
}

func (h *HealthChecker) Close() error {
	return h.conn.Close()
}
