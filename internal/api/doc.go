// Package api exposes the conversational transfer engine over REST.
// One chat turn per request; caller identity travels in the X-Owner header.
package api
