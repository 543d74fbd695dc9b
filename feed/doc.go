// Package feed implements the market-data broadcaster: a set of
// subscriber sinks guarded by its own lock, fanned out to on every
// published order-lifecycle event. The set is disjoint from all
// symbol locks; publishers must not hold a book lock while publishing.
package feed
