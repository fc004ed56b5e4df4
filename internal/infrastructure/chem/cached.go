package chem

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/turtacn/flame-data/internal/domain/identity"
	"github.com/turtacn/flame-data/internal/infrastructure/database/redis"
	"github.com/turtacn/flame-data/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/flame-data/internal/infrastructure/monitoring/prometheus"
)

// Instrumented wraps an oracle with metrics and an optional read-through
// cache. The toolkit is deterministic, so cached answers only expire by TTL.
// Geometry operations take user supplied coordinates and are never cached.
type Instrumented struct {
	next    identity.Oracle
	cache   redis.Cache
	ttl     time.Duration
	metrics *prometheus.AppMetrics
	logger  logging.Logger
}

var _ identity.Oracle = (*Instrumented)(nil)

// NewInstrumented decorates next. cache and metrics may be nil.
func NewInstrumented(next identity.Oracle, cache redis.Cache, ttl time.Duration, metrics *prometheus.AppMetrics, log logging.Logger) *Instrumented {
	return &Instrumented{next: next, cache: cache, ttl: ttl, metrics: metrics, logger: log.Named("oracle.cache")}
}

// CacheKey is the cache key of op applied to inputs.
func CacheKey(op string, inputs ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(inputs, "\x00")))
	return op + ":" + hex.EncodeToString(sum[:])
}

func (o *Instrumented) observe(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	if o.metrics != nil {
		prometheus.RecordOracleCall(o.metrics, op, err, time.Since(start))
	}
	return err
}

func (o *Instrumented) cached(ctx context.Context, op string, dest interface{}, load func(ctx context.Context) (interface{}, error), inputs ...string) error {
	if o.cache == nil {
		return o.observe(op, func() error {
			v, err := load(ctx)
			if err != nil {
				return err
			}
			return assign(dest, v)
		})
	}
	missed := false
	err := o.cache.GetOrSet(ctx, CacheKey(op, inputs...), dest, o.ttl, func(ctx context.Context) (interface{}, error) {
		missed = true
		var v interface{}
		err := o.observe(op, func() error {
			var err error
			v, err = load(ctx)
			return err
		})
		return v, err
	})
	if o.metrics != nil && err == nil {
		prometheus.RecordCacheAccess(o.metrics, op, !missed)
	}
	return err
}

func assign(dest, v interface{}) error {
	switch d := dest.(type) {
	case *string:
		*d = v.(string)
	case *int:
		*d = v.(int)
	case *[]identity.Stereoisomer:
		*d = v.([]identity.Stereoisomer)
	case *[]identity.ReactionChannel:
		*d = v.([]identity.ReactionChannel)
	}
	return nil
}

func (o *Instrumented) ConnectivitySmiles(ctx context.Context, smiles string) (string, error) {
	var out string
	err := o.cached(ctx, OpConnectivitySmiles, &out, func(ctx context.Context) (interface{}, error) {
		return o.next.ConnectivitySmiles(ctx, smiles)
	}, smiles)
	return out, err
}

func (o *Instrumented) InChI(ctx context.Context, smiles string, stereo bool) (string, error) {
	var out string
	err := o.cached(ctx, OpInChI, &out, func(ctx context.Context) (interface{}, error) {
		return o.next.InChI(ctx, smiles, stereo)
	}, smiles, strconv.FormatBool(stereo))
	return out, err
}

func (o *Instrumented) AMChI(ctx context.Context, smiles string, stereo bool) (string, error) {
	var out string
	err := o.cached(ctx, OpAMChI, &out, func(ctx context.Context) (interface{}, error) {
		return o.next.AMChI(ctx, smiles, stereo)
	}, smiles, strconv.FormatBool(stereo))
	return out, err
}

func (o *Instrumented) ChIKey(ctx context.Context, chi string) (string, error) {
	var out string
	err := o.cached(ctx, OpChIKey, &out, func(ctx context.Context) (interface{}, error) {
		return o.next.ChIKey(ctx, chi)
	}, chi)
	return out, err
}

func (o *Instrumented) ChISmiles(ctx context.Context, chi string) (string, error) {
	var out string
	err := o.cached(ctx, OpChISmiles, &out, func(ctx context.Context) (interface{}, error) {
		return o.next.ChISmiles(ctx, chi)
	}, chi)
	return out, err
}

func (o *Instrumented) SVG(ctx context.Context, smiles string) (string, error) {
	var out string
	err := o.cached(ctx, OpSVG, &out, func(ctx context.Context) (interface{}, error) {
		return o.next.SVG(ctx, smiles)
	}, smiles)
	return out, err
}

func (o *Instrumented) LowSpinMultiplicity(ctx context.Context, chi string) (int, error) {
	var out int
	err := o.cached(ctx, OpLowSpinMultiplicity, &out, func(ctx context.Context) (interface{}, error) {
		return o.next.LowSpinMultiplicity(ctx, chi)
	}, chi)
	return out, err
}

func (o *Instrumented) Stereoisomers(ctx context.Context, smiles string) ([]identity.Stereoisomer, error) {
	var out []identity.Stereoisomer
	err := o.cached(ctx, OpStereoisomers, &out, func(ctx context.Context) (interface{}, error) {
		return o.next.Stereoisomers(ctx, smiles)
	}, smiles)
	return out, err
}

func (o *Instrumented) ReactionChannels(ctx context.Context, reactants, products string) ([]identity.ReactionChannel, error) {
	var out []identity.ReactionChannel
	err := o.cached(ctx, OpReactionChannels, &out, func(ctx context.Context) (interface{}, error) {
		return o.next.ReactionChannels(ctx, reactants, products)
	}, reactants, products)
	return out, err
}

func (o *Instrumented) GeometryAMChI(ctx context.Context, xyz string) (string, error) {
	var out string
	err := o.observe(OpGeometryAMChI, func() error {
		var err error
		out, err = o.next.GeometryAMChI(ctx, xyz)
		return err
	})
	return out, err
}

func (o *Instrumented) NormalizeGeometry(ctx context.Context, xyz string) (string, error) {
	var out string
	err := o.observe(OpNormalizeGeometry, func() error {
		var err error
		out, err = o.next.NormalizeGeometry(ctx, xyz)
		return err
	})
	return out, err
}
