// Package dedup tracks which scraped reviews have already been seen for a
// place, so repeated scrapes of the same location only yield new reviews.
//
// A fingerprint set only grows until it is explicitly reset. FileIndex keeps
// the index in memory and rewrites the backing file after every mutation.
// Each mutation holds a lock file next to it and reloads the file first, so
// processes sharing the file see each other's fingerprints.
package dedup
