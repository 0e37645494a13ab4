// Package fuse contains the core components of Fuse, a framework for data-parallel
// computation which compiles chains of operators into fused native code instead of
// interpreting them operator-by-operator.
//
// DataFrames are built lazily from sources (see the datasource packages) and
// operations (see operations/transform). Nothing runs until a terminal action
// (Collect, Count or Reduce on an engine.Engine) is invoked. The engine then splits
// the operator graph into stages at shuffle boundaries, serializes the stage plan,
// and asks its compilation cache for a native unit built for the plan's structural
// fingerprint, compiling one only if none exists yet. Results come back as
// ResultViews over the unit's own output buffer.
package fuse
