// Package memory stores finalized meetings and retrieves transcript excerpts
// relevant to a query. Transcripts are split into overlapping chunks indexed
// by term-frequency vectors and ranked by cosine similarity.
package memory
