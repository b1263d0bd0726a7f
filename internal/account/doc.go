// Package account resolves destination references into concrete addresses and
// maintains the user's saved alias bookmarks across pluggable stores.
package account
