package registry

import (
	"fmt"

	"github.com/hupe1980/vectorcore/distance"
	"github.com/hupe1980/vectorcore/internal/simd"
	"github.com/hupe1980/vectorcore/metric"
)

// floatDataTypes lists the data types the float kernel family covers.
var floatDataTypes = []metric.DataType{
	metric.DataTypeUint8,
	metric.DataTypeFloat16,
	metric.DataTypeFloat32,
}

// registerBuiltins installs the full built-in operator set. Scalar kernels
// cover every data type of their family; tiered kernels run on float32
// (lane-batched) and uint8 (word-blocked popcounts) and are registered only
// for tiers the running CPU supports.
func registerBuiltins(r *Registry) error {
	steps := []struct {
		name string
		fn   func(*Registry) error
	}{
		{"l1", registerL1Operators},
		{"l2", registerL2Operators},
		{"ip", registerIPOperators},
		{"cosine", registerCosineOperators},
		{"angle", registerAngleOperators},
		{"hamming", registerHammingOperators},
		{"jaccard", registerJaccardOperators},
		{"normalized", registerNormalizedOperators},
	}

	for _, step := range steps {
		if err := step.fn(r); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}

	return nil
}

// supportedTiers returns the batched SIMD tiers available on this CPU, in
// ascending order. The scalar tier (SimdNone) is handled separately.
func supportedTiers() []metric.SimdLevel {
	var tiers []metric.SimdLevel

	for lv := metric.SimdSSE2; lv < metric.SimdMax; lv++ {
		if simd.Supported(lv) {
			tiers = append(tiers, lv)
		}
	}

	return tiers
}

func registerL1Operators(r *Registry) error {
	for _, dt := range floatDataTypes {
		dist, ok := distance.L1(dt)
		if !ok {
			return fmt.Errorf("no l1 kernel for %s", dt)
		}

		norm, _ := distance.L1Norm(dt)

		if err := r.RegisterOperator(OperatorEntity{
			Supports:       true,
			Metric:         metric.L1,
			DataType:       dt,
			SimdLevel:      metric.SimdNone,
			DistanceVector: dist,
			NormVector:     norm,
		}, false); err != nil {
			return err
		}
	}

	for _, lv := range supportedTiers() {
		lanes := distance.Lanes(lv)

		if err := r.RegisterOperator(OperatorEntity{
			Supports:       true,
			Metric:         metric.L1,
			DataType:       metric.DataTypeFloat32,
			SimdLevel:      lv,
			DistanceVector: distance.L1Batched(lanes),
			NormVector:     distance.L1NormBatched(lanes),
		}, false); err != nil {
			return err
		}
	}

	return nil
}

func registerL2Operators(r *Registry) error {
	for _, dt := range floatDataTypes {
		dist, ok := distance.L2(dt)
		if !ok {
			return fmt.Errorf("no l2 kernel for %s", dt)
		}

		norm, _ := distance.L2Norm(dt)

		if err := r.RegisterOperator(OperatorEntity{
			Supports:       true,
			Metric:         metric.L2,
			DataType:       dt,
			SimdLevel:      metric.SimdNone,
			DistanceVector: dist,
			NormVector:     norm,
		}, false); err != nil {
			return err
		}
	}

	for _, lv := range supportedTiers() {
		lanes := distance.Lanes(lv)

		if err := r.RegisterOperator(OperatorEntity{
			Supports:       true,
			Metric:         metric.L2,
			DataType:       metric.DataTypeFloat32,
			SimdLevel:      lv,
			DistanceVector: distance.L2Batched(lanes),
			NormVector:     distance.L2NormBatched(lanes),
		}, false); err != nil {
			return err
		}
	}

	return nil
}

func registerIPOperators(r *Registry) error {
	return registerFloatFamily(r, metric.IP, distance.IP, distance.IPBatched)
}

func registerCosineOperators(r *Registry) error {
	return registerFloatFamily(r, metric.Cosine, distance.Cosine, distance.CosineBatched)
}

func registerAngleOperators(r *Registry) error {
	return registerFloatFamily(r, metric.Angle, distance.Angle, distance.AngleBatched)
}

// registerFloatFamily installs a float metric without a norm function:
// scalar kernels for every data type, batched kernels for float32 tiers.
func registerFloatFamily(r *Registry, m metric.Type, scalar func(metric.DataType) (distance.Func, bool), batched func(int) distance.Func) error {
	for _, dt := range floatDataTypes {
		dist, ok := scalar(dt)
		if !ok {
			return fmt.Errorf("no %s kernel for %s", m, dt)
		}

		if err := r.RegisterOperator(OperatorEntity{
			Supports:       true,
			Metric:         m,
			DataType:       dt,
			SimdLevel:      metric.SimdNone,
			DistanceVector: dist,
		}, false); err != nil {
			return err
		}
	}

	for _, lv := range supportedTiers() {
		if err := r.RegisterOperator(OperatorEntity{
			Supports:       true,
			Metric:         m,
			DataType:       metric.DataTypeFloat32,
			SimdLevel:      lv,
			DistanceVector: batched(distance.Lanes(lv)),
		}, false); err != nil {
			return err
		}
	}

	return nil
}

func registerHammingOperators(r *Registry) error {
	return registerPopcountFamily(r, metric.Hamming, distance.Hamming(), distance.HammingBlocked)
}

func registerJaccardOperators(r *Registry) error {
	return registerPopcountFamily(r, metric.Jaccard, distance.Jaccard(), distance.JaccardBlocked)
}

// registerPopcountFamily installs a binary metric under uint8: the scalar
// kernel plus word-blocked kernels for the supported tiers.
func registerPopcountFamily(r *Registry, m metric.Type, scalar distance.Func, blocked func(int) distance.Func) error {
	if err := r.RegisterOperator(OperatorEntity{
		Supports:       true,
		Metric:         m,
		DataType:       metric.DataTypeUint8,
		SimdLevel:      metric.SimdNone,
		DistanceVector: scalar,
	}, false); err != nil {
		return err
	}

	for _, lv := range supportedTiers() {
		if err := r.RegisterOperator(OperatorEntity{
			Supports:       true,
			Metric:         m,
			DataType:       metric.DataTypeUint8,
			SimdLevel:      lv,
			DistanceVector: blocked(distance.Words(lv)),
		}, false); err != nil {
			return err
		}
	}

	return nil
}

// registerNormalizedOperators installs the normalized metric family. These
// operators carry NeedNormalizeVector and a NormalizeVector function;
// their distance kernels assume unit-norm operands. Uint8 is excluded
// since normalization is not meaningful for byte-quantized vectors.
func registerNormalizedOperators(r *Registry) error {
	families := []struct {
		m       metric.Type
		scalar  func(metric.DataType) (distance.Func, bool)
		batched func(int) distance.Func
	}{
		{metric.NormalizedL2, distance.NormalizedL2, distance.NormalizedL2Batched},
		{metric.NormalizedCosine, distance.NormalizedCosine, distance.NormalizedCosineBatched},
		{metric.NormalizedAngle, distance.NormalizedAngle, distance.NormalizedAngleBatched},
	}

	normalizedDataTypes := []metric.DataType{
		metric.DataTypeFloat16,
		metric.DataTypeFloat32,
	}

	for _, fam := range families {
		for _, dt := range normalizedDataTypes {
			dist, ok := fam.scalar(dt)
			if !ok {
				return fmt.Errorf("no %s kernel for %s", fam.m, dt)
			}

			normalize, ok := distance.NormalizeL2(dt)
			if !ok {
				return fmt.Errorf("no l2 normalization for %s", dt)
			}

			norm, _ := distance.L2Norm(dt)

			if err := r.RegisterOperator(OperatorEntity{
				Supports:            true,
				NeedNormalizeVector: true,
				Metric:              fam.m,
				DataType:            dt,
				SimdLevel:           metric.SimdNone,
				NormalizeVector:     normalize,
				DistanceVector:      dist,
				NormVector:          norm,
			}, false); err != nil {
				return err
			}
		}

		for _, lv := range supportedTiers() {
			lanes := distance.Lanes(lv)

			if err := r.RegisterOperator(OperatorEntity{
				Supports:            true,
				NeedNormalizeVector: true,
				Metric:              fam.m,
				DataType:            metric.DataTypeFloat32,
				SimdLevel:           lv,
				NormalizeVector:     distance.NormalizeL2Batched(lanes),
				DistanceVector:      fam.batched(lanes),
				NormVector:          distance.L2NormBatched(lanes),
			}, false); err != nil {
				return err
			}
		}
	}

	return nil
}
