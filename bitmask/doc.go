// Package bitmask implements the succinct set codec used for presence and
// discriminant information.
//
// A bitmask encodes a strictly increasing set of indices S over [0, n). The
// range is treated as the leaves of a complete binary tree of depth
// ceil(log2 n). Nodes are visited in pre-order; every visited node emits one
// bit:
//
//   - 0: the node's subrange holds no member of S, nothing below it is emitted
//   - 1 on an inner node: the subrange is mixed, both children follow
//   - 1 on a leaf: the leaf index is a member of S
//
// Nodes whose subrange starts at or beyond n are never emitted. Encoding stops
// as soon as the last member has been emitted; a decoder that runs out of bits
// treats the remainder as zeros, so trailing empty regions cost nothing.
//
// Sparse and clustered sets cost far less than one bit per element. Both
// directions walk the tree with a fixed 64-entry stack, which covers any n up
// to 2^63.
//
// The mapping helpers (ForwardMapIndexes, BackwardMapIndexes and their
// single-index and OneOf forms) turn decoded sets into index maps without
// materializing a bit vector.
package bitmask
