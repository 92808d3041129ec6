// Package plan defines the BuildPlan: the ordered, validated set of resources
// processed in one invocation.
//
// Validation is pure. It derives every symbol base from the declared paths
// and rejects collisions before any file is read or written. The plan
// identity (Hash) is computed from the sorted resource set, making it
// invariant to declaration order.
package plan
