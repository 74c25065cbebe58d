package client

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/matheus3301/inbox/internal/inboxv1"
)

// Client wraps the gRPC connection to the daemon.
type Client struct {
	conn   *grpc.ClientConn
	Inbox  inboxv1.InboxServiceClient
	Health healthpb.HealthClient
}

// New dials the daemon's Unix domain socket and returns typed service clients.
func New(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}

	return &Client{
		conn:   conn,
		Inbox:  inboxv1.NewInboxServiceClient(conn),
		Health: healthpb.NewHealthClient(conn),
	}, nil
}

// Probe reports whether a daemon answers on socketPath.
func Probe(socketPath string, timeout time.Duration) bool {
	c, err := New(socketPath)
	if err != nil {
		return false
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	_, err = c.Inbox.GetConnection(ctx, &inboxv1.GetConnectionRequest{})
	return err == nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
