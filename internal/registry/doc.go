// Package registry persists the per-platform cache of known stream and VOD
// records backed by SQLite. Records fetched from a platform listing are
// merge-upserted; manually injected records outrank automated fetches and
// are never overwritten by a refresh. A corrupt database is treated the same
// as a cold cache: the broken file is moved aside and a fresh one created.
package registry
