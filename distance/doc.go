// Package distance implements the distance kernel family: scalar reference
// kernels and lane-batched tier kernels for every supported metric.
//
// All kernels operate on raw byte spans reinterpreted according to the bound
// data type. For a given metric, every tier agrees with the scalar reference
// within floating-point rounding tolerance; the registry relies on this when
// it selects an accelerated tier.
//
// Batched kernels assume their operands were allocated through the aligned
// allocator (internal/mem); they process the lane-divisible prefix in fixed
// width chunks and fall back to scalar accumulation for the remainder.
package distance
