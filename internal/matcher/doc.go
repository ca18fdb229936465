// Package matcher answers free-text health questions from the knowledge
// table.
//
// A question is first matched against the topics using an ordered list of
// tiers (exact title, title substring, category/tag substring, fuzzy). The
// first tier that any topic satisfies wins, and within that tier the first
// topic in table order is returned. When no topic matches, the reply falls
// back to disease-keyword suggestions, then to fixed single-topic advice,
// then to a generic disclaimer. Respond never fails.
package matcher
