package rpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client wraps the ExportVerifier service for callers that hold raw
// archive bytes.
type Client struct {
	cc     *grpc.ClientConn
	client ExportVerifierClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration

	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int
}

func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cc, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, err
	}
	return &Client{cc: cc, client: NewExportVerifierClient(cc), Timeout: 0}, nil
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

// VerifyArchive submits archive bytes and returns the outcome string.
func (c *Client) VerifyArchive(zipBytes []byte) (string, error) {
	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.client.VerifyArchive(ctx, wrapperspb.Bytes(zipBytes))
	if err != nil {
		return "", err
	}
	return reply.GetValue(), nil
}

// ExtractKeys submits archive bytes and returns the verified canonical
// export container bytes.
func (c *Client) ExtractKeys(zipBytes []byte) ([]byte, error) {
	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.client.ExtractKeys(ctx, wrapperspb.Bytes(zipBytes))
	if err != nil {
		return nil, err
	}
	return reply.GetValue(), nil
}

func (c *Client) ctx() (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), c.Timeout)
}
