// Package registry maintains the table of metric operators: for every
// (metric, data type, SIMD tier) cell it records whether a kernel set is
// available and, if so, which distance, normalization, and norm functions
// implement it.
//
// The table is a dense three-level array indexed by metric.Type,
// metric.DataType, and metric.SimdLevel. Lookups never fall back to a lower
// tier; callers that want the best available tier resolve it once at setup
// time via simd.MaxLevel and keep the returned operator.
package registry

import (
	"fmt"
	"sync"

	vectorcore "github.com/hupe1980/vectorcore"
	"github.com/hupe1980/vectorcore/distance"
	"github.com/hupe1980/vectorcore/metric"
)

// OperatorEntity binds the kernel set for one (metric, data type, tier)
// cell. A zero entity means the cell was never registered.
type OperatorEntity struct {
	// Supports reports whether this cell carries usable kernels. Entities
	// can be registered with Supports=false to explicitly mark a
	// combination as unsupported.
	Supports bool

	// NeedNormalizeVector marks metrics whose distance kernels assume
	// unit-norm operands. Callers must run NormalizeVector over every
	// vector before storing or comparing it.
	NeedNormalizeVector bool

	Metric    metric.Type
	DataType  metric.DataType
	SimdLevel metric.SimdLevel

	// NormalizeVector rewrites a vector to unit L2 norm. Nil unless
	// NeedNormalizeVector is set.
	NormalizeVector distance.NormalizeFunc

	// DistanceVector computes the metric distance between two encoded
	// vector spans of equal length.
	DistanceVector distance.Func

	// NormVector computes the metric's vector norm. Nil for metrics
	// without a meaningful single-vector norm.
	NormVector distance.NormFunc
}

type tierTable struct {
	initialized bool
	entities    [metric.SimdMax]OperatorEntity
}

type dataTypeTable struct {
	initialized bool
	types       [metric.DataTypeMax]tierTable
}

// Registry is the operator table. It is safe for concurrent reads after
// FinishBuild; registration is not synchronized and belongs in setup code.
type Registry struct {
	table  [metric.TypeMax]dataTypeTable
	frozen bool
	logger *vectorcore.Logger
}

type options struct {
	logger *vectorcore.Logger
}

// Option configures registry construction.
type Option func(*options)

// WithLogger configures structured logging for operator registration.
func WithLogger(logger *vectorcore.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New creates a registry pre-populated with the built-in operators for
// every SIMD tier the running CPU supports. The registry stays open for
// custom registration until FinishBuild is called.
func New(optFns ...Option) (*Registry, error) {
	o := options{
		logger: vectorcore.NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}

	r := &Registry{logger: o.logger}
	if err := registerBuiltins(r); err != nil {
		return nil, fmt.Errorf("register builtin operators: %w", err)
	}

	return r, nil
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the shared built-in registry. It is frozen; use New to
// build a registry that accepts custom operators.
func Default() *Registry {
	defaultOnce.Do(func() {
		r, err := New()
		if err != nil {
			panic(fmt.Sprintf("vectorcore: building default registry: %v", err))
		}
		r.FinishBuild()
		defaultRegistry = r
	})

	return defaultRegistry
}

// RegisterOperator installs op into its (metric, data type, tier) cell.
// Registering an occupied cell fails with ErrAlreadyExists unless replace
// is set. Registration after FinishBuild fails with ErrFailedPrecondition.
func (r *Registry) RegisterOperator(op OperatorEntity, replace bool) error {
	if r.frozen {
		return fmt.Errorf("%w: registry is finalized", vectorcore.ErrFailedPrecondition)
	}

	if !op.Metric.Valid() {
		return fmt.Errorf("%w: metric %d out of range", vectorcore.ErrInvalidArgument, op.Metric)
	}

	if !op.DataType.Valid() {
		return fmt.Errorf("%w: data type %d out of range", vectorcore.ErrInvalidArgument, op.DataType)
	}

	if !op.SimdLevel.Valid() {
		return fmt.Errorf("%w: simd level %d out of range", vectorcore.ErrInvalidArgument, op.SimdLevel)
	}

	dtt := &r.table[op.Metric]
	tt := &dtt.types[op.DataType]
	slot := &tt.entities[op.SimdLevel]

	if slot.Metric != metric.Undefined && !replace {
		return fmt.Errorf("%w: operator %s/%s/%s already registered",
			vectorcore.ErrAlreadyExists, op.Metric, op.DataType, op.SimdLevel)
	}

	dtt.initialized = true
	tt.initialized = true
	*slot = op

	r.logger.WithMetric(op.Metric.String()).Debug("operator registered",
		"data_type", op.DataType.String(),
		"simd_level", op.SimdLevel.String(),
		"supports", op.Supports,
	)

	return nil
}

// GetMetricOperator returns the operator for the exact (metric, data type,
// tier) cell. An out-of-range argument fails with ErrInvalidArgument; an
// unregistered or unsupported cell fails with ErrUnavailable. There is no
// fallback to a lower tier.
func (r *Registry) GetMetricOperator(m metric.Type, dt metric.DataType, level metric.SimdLevel) (*OperatorEntity, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: metric %d out of range", vectorcore.ErrInvalidArgument, m)
	}

	if !dt.Valid() {
		return nil, fmt.Errorf("%w: data type %d out of range", vectorcore.ErrInvalidArgument, dt)
	}

	if !level.Valid() {
		return nil, fmt.Errorf("%w: simd level %d out of range", vectorcore.ErrInvalidArgument, level)
	}

	dtt := &r.table[m]
	if !dtt.initialized {
		return nil, fmt.Errorf("%w: no operators registered for metric %s", vectorcore.ErrUnavailable, m)
	}

	tt := &dtt.types[dt]
	if !tt.initialized {
		return nil, fmt.Errorf("%w: metric %s has no operators for data type %s", vectorcore.ErrUnavailable, m, dt)
	}

	ent := &tt.entities[level]
	if !ent.Supports {
		return nil, fmt.Errorf("%w: operator %s/%s/%s is not supported", vectorcore.ErrUnavailable, m, dt, level)
	}

	return ent, nil
}

// AllMetricOperators returns every supported operator in table order:
// metric, then data type, then SIMD tier.
func (r *Registry) AllMetricOperators() []*OperatorEntity {
	var ops []*OperatorEntity

	for m := range r.table {
		dtt := &r.table[m]
		if !dtt.initialized {
			continue
		}

		for dt := range dtt.types {
			tt := &dtt.types[dt]
			if !tt.initialized {
				continue
			}

			for lv := range tt.entities {
				if ent := &tt.entities[lv]; ent.Supports {
					ops = append(ops, ent)
				}
			}
		}
	}

	return ops
}

// FinishBuild freezes the registry. Subsequent RegisterOperator calls fail;
// lookups remain valid and are safe for concurrent use.
func (r *Registry) FinishBuild() {
	r.frozen = true
}

// Finalized reports whether FinishBuild has been called.
func (r *Registry) Finalized() bool {
	return r.frozen
}
