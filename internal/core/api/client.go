package api

import (
	"context"
	"encoding/base64"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/formatkeeper/internal/core/db"
	"github.com/solatis/formatkeeper/internal/types"
)

// Client calls a remote CheckService.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps a connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in map[string]any, out any, opts ...grpc.CallOption) error {
	req, err := structpb.NewStruct(in)
	if err != nil {
		return err
	}
	resp := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, req, resp, opts...); err != nil {
		return err
	}
	return fromStruct(resp, out)
}

// CheckDocument uploads a document and returns the run.
func (c *Client) CheckDocument(ctx context.Context, name string, data []byte, record bool, opts ...grpc.CallOption) (*types.CheckRun, error) {
	var run types.CheckRun
	err := c.invoke(ctx, "CheckDocument", map[string]any{
		"name":     name,
		"document": base64.StdEncoding.EncodeToString(data),
		"record":   record,
	}, &run, opts...)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns up to limit recorded runs.
func (c *Client) ListRuns(ctx context.Context, limit int, opts ...grpc.CallOption) ([]db.RunSummary, error) {
	var out struct {
		Runs []db.RunSummary `json:"runs"`
	}
	if err := c.invoke(ctx, "ListRuns", map[string]any{"limit": limit}, &out, opts...); err != nil {
		return nil, err
	}
	return out.Runs, nil
}

// GetRun fetches one recorded run.
func (c *Client) GetRun(ctx context.Context, id types.RunID, opts ...grpc.CallOption) (*types.CheckRun, error) {
	var run types.CheckRun
	if err := c.invoke(ctx, "GetRun", map[string]any{"run_id": string(id)}, &run, opts...); err != nil {
		return nil, err
	}
	return &run, nil
}
