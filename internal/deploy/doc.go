// Package deploy publishes the dist directory to S3 or an S3-compatible
// bucket so compiled emails can reference hosted images.
//
// Sync uploads new and changed files, skips objects whose ETag matches the
// local MD5, optionally prunes remote keys that no longer exist locally, and
// writes a manifest.json describing the deployed build.
package deploy
