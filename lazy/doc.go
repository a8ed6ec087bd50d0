// Package lazy provides index-mapped virtual sequences.
//
// An Array is a pair (getter, index map). The getter is a pure function from a
// source position to a value; the index map lists, for every logical element,
// the source position it reads (or a negative entry for an absent element).
// Arrays never own the storage their getter reads from, so several arrays can
// share one getter and the buffer it closes over.
//
// Every transformation returns a new Array. Filter, Sort, Reverse, Slice,
// Duplicate, FindAll and DropNull only build a new index map over the same
// getter; Map composes a new getter over the old one and evaluates it on
// access. Sort reads every element once into a scratch slice to compare it,
// the result still reads through the original getter.
//
// Arrays are immutable and safe to share between goroutines as long as the
// getter is.
package lazy
