package chem

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/turtacn/flame-data/internal/config"
	"github.com/turtacn/flame-data/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/flame-data/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service of the toolkit. Every
// method takes and returns a google.protobuf.Struct carrying the same fields
// as the JSON transport.
const ServiceName = "flamedata.chem.v1.ChemistryOracle"

var grpcMethods = map[string]string{
	OpConnectivitySmiles:  "ConnectivitySmiles",
	OpInChI:               "InChI",
	OpAMChI:               "AMChI",
	OpChIKey:              "ChIKey",
	OpChISmiles:           "ChISmiles",
	OpSVG:                 "SVG",
	OpLowSpinMultiplicity: "LowSpinMultiplicity",
	OpStereoisomers:       "Stereoisomers",
	OpReactionChannels:    "ReactionChannels",
	OpGeometryAMChI:       "GeometryAMChI",
	OpNormalizeGeometry:   "NormalizeGeometry",
}

// MethodName returns the full gRPC method path for op.
func MethodName(op string) string {
	return "/" + ServiceName + "/" + grpcMethods[op]
}

type grpcTransport struct {
	conn    *grpc.ClientConn
	health  healthpb.HealthClient
	timeout time.Duration
	logger  logging.Logger
}

// NewGRPCClient dials cfg.GRPCTarget. The dial does not block; connection
// failures surface on the first call.
func NewGRPCClient(ctx context.Context, cfg config.OracleConfig, log logging.Logger, opts ...grpc.DialOption) (*Client, error) {
	applyDefaults(&cfg)
	if cfg.GRPCTarget == "" {
		return nil, errors.New(errors.ErrCodeValidation, "oracle grpc_target is required")
	}
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, opts...)

	conn, err := grpc.DialContext(ctx, cfg.GRPCTarget, dialOpts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeOracleUnavailable, "failed to dial oracle")
	}
	t := &grpcTransport{
		conn:    conn,
		health:  healthpb.NewHealthClient(conn),
		timeout: cfg.Timeout,
		logger:  log.Named("oracle.grpc"),
	}
	return newClient(t, log), nil
}

func (t *grpcTransport) call(ctx context.Context, op string, req, resp interface{}) error {
	if _, ok := grpcMethods[op]; !ok {
		return fmt.Errorf("unknown oracle operation %q", op)
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", op, err)
	}
	in := &structpb.Struct{}
	if err := protojson.Unmarshal(body, in); err != nil {
		return fmt.Errorf("failed to encode %s request: %w", op, err)
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	out := &structpb.Struct{}
	start := time.Now()
	if err := t.conn.Invoke(ctx, MethodName(op), in, out); err != nil {
		t.logger.Warn("oracle rpc failed", logging.String("op", op), logging.Err(err))
		if st, ok := status.FromError(err); ok && st.Code() == codes.InvalidArgument {
			return malformed(op, st.Message())
		}
		return unavailable(op, err)
	}
	t.logger.Debug("oracle rpc", logging.String("op", op), logging.Duration("duration", time.Since(start)))

	data, err := protojson.Marshal(out)
	if err != nil {
		return unavailable(op, err)
	}
	if err := json.Unmarshal(data, resp); err != nil {
		return unavailable(op, fmt.Errorf("undecodable %s response: %w", op, err))
	}
	return nil
}

func (t *grpcTransport) ping(ctx context.Context) error {
	resp, err := t.health.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return unavailable("ping", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return unavailable("ping", fmt.Errorf("oracle status %s", resp.GetStatus()))
	}
	return nil
}

func (t *grpcTransport) Close() error {
	return t.conn.Close()
}
