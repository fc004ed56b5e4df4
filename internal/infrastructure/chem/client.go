// Package chem talks to the external chemistry toolkit. The toolkit is
// reached over JSON/HTTP or gRPC; both transports share the request and
// response shapes defined here and the Client that maps them onto
// identity.Oracle.
package chem

import (
	"context"
	"strings"

	"github.com/turtacn/flame-data/internal/config"
	"github.com/turtacn/flame-data/internal/domain/identity"
	"github.com/turtacn/flame-data/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/flame-data/pkg/errors"
)

// Operation names as exposed by the toolkit.
const (
	OpConnectivitySmiles  = "connectivity_smiles"
	OpInChI               = "inchi"
	OpAMChI               = "amchi"
	OpChIKey              = "chi_key"
	OpChISmiles           = "chi_smiles"
	OpSVG                 = "svg"
	OpLowSpinMultiplicity = "low_spin_multiplicity"
	OpStereoisomers       = "stereoisomers"
	OpReactionChannels    = "reaction_channels"
	OpGeometryAMChI       = "geometry_amchi"
	OpNormalizeGeometry   = "normalize_geometry"
)

// transport performs one toolkit operation, encoding req and decoding the
// result into resp.
type transport interface {
	call(ctx context.Context, op string, req, resp interface{}) error
	ping(ctx context.Context) error
	Close() error
}

type smilesRequest struct {
	Smiles string `json:"smiles"`
	Stereo bool   `json:"stereo,omitempty"`
}

type chiRequest struct {
	ChI string `json:"chi"`
}

type xyzRequest struct {
	XYZ string `json:"xyz"`
}

type reactionRequest struct {
	Reactants string `json:"reactants"`
	Products  string `json:"products"`
}

type smilesResponse struct {
	Smiles string `json:"smiles"`
}

type chiResponse struct {
	ChI string `json:"chi"`
}

type keyResponse struct {
	Key string `json:"key"`
}

type svgResponse struct {
	SVG string `json:"svg"`
}

type multResponse struct {
	Mult int `json:"mult"`
}

type isomersResponse struct {
	Isomers []identity.Stereoisomer `json:"isomers"`
}

type channelsResponse struct {
	Channels []identity.ReactionChannel `json:"channels"`
}

type xyzResponse struct {
	XYZ string `json:"xyz"`
}

// Client implements identity.Oracle over a transport.
type Client struct {
	t      transport
	logger logging.Logger
}

var _ identity.Oracle = (*Client)(nil)

// New builds a Client for the configured transport.
func New(ctx context.Context, cfg config.OracleConfig, log logging.Logger) (*Client, error) {
	switch strings.ToLower(cfg.Transport) {
	case "", "http":
		return NewHTTPClient(cfg, log), nil
	case "grpc":
		return NewGRPCClient(ctx, cfg, log)
	default:
		return nil, errors.Newf(errors.ErrCodeValidation, "unknown oracle transport %q", cfg.Transport)
	}
}

func newClient(t transport, log logging.Logger) *Client {
	return &Client{t: t, logger: log.Named("oracle")}
}

func (c *Client) ConnectivitySmiles(ctx context.Context, smiles string) (string, error) {
	var out smilesResponse
	if err := c.t.call(ctx, OpConnectivitySmiles, smilesRequest{Smiles: smiles}, &out); err != nil {
		return "", err
	}
	return out.Smiles, nil
}

func (c *Client) InChI(ctx context.Context, smiles string, stereo bool) (string, error) {
	var out chiResponse
	if err := c.t.call(ctx, OpInChI, smilesRequest{Smiles: smiles, Stereo: stereo}, &out); err != nil {
		return "", err
	}
	return out.ChI, nil
}

func (c *Client) AMChI(ctx context.Context, smiles string, stereo bool) (string, error) {
	var out chiResponse
	if err := c.t.call(ctx, OpAMChI, smilesRequest{Smiles: smiles, Stereo: stereo}, &out); err != nil {
		return "", err
	}
	return out.ChI, nil
}

func (c *Client) ChIKey(ctx context.Context, chi string) (string, error) {
	var out keyResponse
	if err := c.t.call(ctx, OpChIKey, chiRequest{ChI: chi}, &out); err != nil {
		return "", err
	}
	return out.Key, nil
}

func (c *Client) ChISmiles(ctx context.Context, chi string) (string, error) {
	var out smilesResponse
	if err := c.t.call(ctx, OpChISmiles, chiRequest{ChI: chi}, &out); err != nil {
		return "", err
	}
	return out.Smiles, nil
}

func (c *Client) SVG(ctx context.Context, smiles string) (string, error) {
	var out svgResponse
	if err := c.t.call(ctx, OpSVG, smilesRequest{Smiles: smiles}, &out); err != nil {
		return "", err
	}
	return out.SVG, nil
}

func (c *Client) LowSpinMultiplicity(ctx context.Context, chi string) (int, error) {
	var out multResponse
	if err := c.t.call(ctx, OpLowSpinMultiplicity, chiRequest{ChI: chi}, &out); err != nil {
		return 0, err
	}
	if out.Mult < 1 {
		return 0, errors.Newf(errors.ErrCodeOracleUnavailable, "oracle returned multiplicity %d for %s", out.Mult, chi)
	}
	return out.Mult, nil
}

func (c *Client) Stereoisomers(ctx context.Context, smiles string) ([]identity.Stereoisomer, error) {
	var out isomersResponse
	if err := c.t.call(ctx, OpStereoisomers, smilesRequest{Smiles: smiles}, &out); err != nil {
		return nil, err
	}
	return out.Isomers, nil
}

func (c *Client) ReactionChannels(ctx context.Context, reactants, products string) ([]identity.ReactionChannel, error) {
	var out channelsResponse
	req := reactionRequest{Reactants: reactants, Products: products}
	if err := c.t.call(ctx, OpReactionChannels, req, &out); err != nil {
		return nil, err
	}
	return out.Channels, nil
}

func (c *Client) GeometryAMChI(ctx context.Context, xyz string) (string, error) {
	var out chiResponse
	if err := c.t.call(ctx, OpGeometryAMChI, xyzRequest{XYZ: xyz}, &out); err != nil {
		return "", err
	}
	return out.ChI, nil
}

func (c *Client) NormalizeGeometry(ctx context.Context, xyz string) (string, error) {
	var out xyzResponse
	if err := c.t.call(ctx, OpNormalizeGeometry, xyzRequest{XYZ: xyz}, &out); err != nil {
		return "", err
	}
	return out.XYZ, nil
}

// Ping checks that the toolkit answers.
func (c *Client) Ping(ctx context.Context) error {
	return c.t.ping(ctx)
}

func (c *Client) Close() error {
	return c.t.Close()
}

func malformed(op, msg string) error {
	if msg == "" {
		msg = "malformed chemical identifier"
	}
	return errors.New(errors.ErrCodeMalformedIdentifier, msg).WithDetail(op)
}

func unavailable(op string, cause error) error {
	return errors.Wrap(cause, errors.ErrCodeOracleUnavailable, "chemistry oracle unavailable").WithDetail(op)
}
