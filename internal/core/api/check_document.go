package api

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/formatkeeper/internal/core/auth"
	"github.com/solatis/formatkeeper/internal/types"
)

// CheckDocument checks one uploaded document.
//
// Request fields: name (string), document (base64 string), record (bool,
// default true). The response is the check run in its JSON form. An
// unreadable document is a normal response with a single file_access
// block, not an error.
func (s *CheckService) CheckDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	name := strings.TrimSpace(fields["name"].GetStringValue())
	if name == "" {
		name = "upload.docx"
	}

	encoded := fields["document"].GetStringValue()
	if encoded == "" {
		return nil, status.Error(codes.InvalidArgument, "document required")
	}
	// Reject before decoding when even the encoded form is too large.
	if base64.StdEncoding.DecodedLen(len(encoded)) > s.maxBytes+2 {
		return nil, status.Error(codes.InvalidArgument, fmt.Sprintf("%v: limit %d bytes", types.ErrDocumentTooLarge, s.maxBytes))
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, fmt.Sprintf("document is not valid base64: %v", err))
	}
	if len(data) > s.maxBytes {
		return nil, status.Error(codes.InvalidArgument, fmt.Sprintf("%v: limit %d bytes", types.ErrDocumentTooLarge, s.maxBytes))
	}

	run, err := s.checker.CheckBytes(ctx, name, data)
	if err != nil {
		return nil, status.FromContextError(err).Err()
	}

	record := true
	if v, ok := fields["record"]; ok {
		record = v.GetBoolValue()
	}
	if record && s.store != nil {
		if err := s.store.SaveRun(ctx, run); err != nil {
			s.log.Error("failed to record run", "run_id", run.ID, "error", err)
		}
	}

	s.log.Info("document checked",
		"document", name,
		"run_id", run.ID,
		"key", auth.KeyNameFromContext(ctx),
		"diagnostics", run.DiagnosticCount(),
		"duration", run.Duration)

	out, err := toStruct(run)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode run: %v", err))
	}
	return out, nil
}
