// Package drift implements the state-comparison core of orgdrift: it
// normalizes a declared and an observed organization tree into one
// canonical model, computes an ordered diff between them and
// classifies each difference by severity.
//
// The package includes:
// - Canonical state model with validated entity handles
// - Normalizer with invariant checking and default filling
// - Pure diff engine producing typed discrepancies in stable order
// - Classifier assigning severities and report totals
//
// All computation here is synchronous and free of I/O; fetching and
// parsing live in their own packages.
package drift
