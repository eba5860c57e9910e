package rpc

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/coronarchive/tekexport/archive"
	"github.com/coronarchive/tekexport/assemble"
	"github.com/coronarchive/tekexport/export"
	"github.com/coronarchive/tekexport/verify"
)

// Server exposes batch verification over the ExportVerifier service.
//
// Each archive is treated as a standalone single-batch set; multi-file
// assembly stays a library concern of the automation that collects all
// files of a window.
type Server struct {
	UnimplementedExportVerifierServer

	Lookup verify.KeyLookup
	Policy assemble.TrustPolicy
	Logger *zap.Logger

	verifications metric.Int64Counter
}

// NewServer builds a Server around a key registry and trust policy.
// A nil logger disables logging.
func NewServer(lookup verify.KeyLookup, policy assemble.TrustPolicy, logger *zap.Logger) (*Server, error) {
	if lookup == nil {
		return nil, errors.New("rpc: nil key lookup")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	meter := otel.Meter("github.com/coronarchive/tekexport/rpc")
	verifications, err := meter.Int64Counter("tekexport.verifications",
		metric.WithDescription("Archive verifications by outcome."))
	if err != nil {
		return nil, err
	}
	return &Server{
		Lookup:        lookup,
		Policy:        policy,
		Logger:        logger,
		verifications: verifications,
	}, nil
}

func (s *Server) VerifyArchive(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	if s == nil || s.Lookup == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing key registry")
	}
	outcome := s.verifyOne(in.GetValue())
	s.record(ctx, outcome)
	s.Logger.Info("verify archive",
		zap.String("outcome", outcome),
		zap.Int("archive_bytes", len(in.GetValue())))
	return wrapperspb.String(outcome), nil
}

func (s *Server) ExtractKeys(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Lookup == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing key registry")
	}
	a, err := archive.Read(in.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	batch := assemble.Batch{ExportBytes: a.ExportBytes, SignatureBytes: a.SignatureBytes}
	if _, err := assemble.Assemble([]assemble.Batch{batch}, s.Lookup, s.Policy); err != nil {
		s.record(ctx, outcomeFor(err))
		return nil, mapErr(err)
	}
	s.record(ctx, string(verify.ResultValid))
	return wrapperspb.Bytes(a.ExportBytes), nil
}

// verifyOne maps any failure to its outcome string; only transport
// errors surface as gRPC errors, verification results are data.
func (s *Server) verifyOne(zipBytes []byte) string {
	a, err := archive.Read(zipBytes)
	if err != nil {
		return "MalformedArchive"
	}
	batch := assemble.Batch{ExportBytes: a.ExportBytes, SignatureBytes: a.SignatureBytes}
	if _, err := assemble.Assemble([]assemble.Batch{batch}, s.Lookup, s.Policy); err != nil {
		return outcomeFor(err)
	}
	return string(verify.ResultValid)
}

func outcomeFor(err error) string {
	var e *export.Error
	if errors.As(err, &e) {
		return string(e.Kind)
	}
	return "Error"
}

func (s *Server) record(ctx context.Context, outcome string) {
	if s.verifications == nil {
		return
	}
	s.verifications.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func mapErr(err error) error {
	var e *export.Error
	if !errors.As(err, &e) {
		return status.Error(codes.Internal, err.Error())
	}
	switch e.Kind {
	case export.KindMalformedHeader, export.KindTruncatedMessage, export.KindFieldRange, export.KindInvalidKeyRecord:
		return status.Error(codes.InvalidArgument, err.Error())
	case export.KindKeyNotFound:
		return status.Error(codes.NotFound, err.Error())
	case export.KindUnsupportedAlgorithm:
		return status.Error(codes.Unimplemented, err.Error())
	default:
		return status.Error(codes.FailedPrecondition, err.Error())
	}
}
