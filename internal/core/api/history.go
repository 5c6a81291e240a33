package api

import (
	"context"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/formatkeeper/internal/core/db"
	"github.com/solatis/formatkeeper/internal/types"
)

const maxListLimit = 1000

// ListRuns returns recorded runs, newest first. Request field: limit.
func (s *CheckService) ListRuns(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.store == nil {
		return nil, status.Error(codes.Unavailable, "history store not configured")
	}

	limit := db.DefaultListLimit
	if v, ok := req.GetFields()["limit"]; ok {
		n := v.GetNumberValue()
		if n < 1 || n > maxListLimit || n != float64(int(n)) {
			return nil, status.Error(codes.InvalidArgument, fmt.Sprintf("limit must be an integer between 1 and %d", maxListLimit))
		}
		limit = int(n)
	}

	runs, err := s.store.ListRuns(ctx, limit)
	if err != nil {
		return nil, toStatus(ctx, err, "failed to list runs")
	}

	out, err := toStruct(map[string]any{"runs": runs})
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode runs: %v", err))
	}
	return out, nil
}

// GetRun returns one recorded run with its blocks. Request field: run_id.
func (s *CheckService) GetRun(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.store == nil {
		return nil, status.Error(codes.Unavailable, "history store not configured")
	}

	id, err := types.ParseRunID(req.GetFields()["run_id"].GetStringValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	run, err := s.store.GetRun(ctx, id)
	if err != nil {
		return nil, toStatus(ctx, err, "failed to get run")
	}

	out, err := toStruct(run)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode run: %v", err))
	}
	return out, nil
}
