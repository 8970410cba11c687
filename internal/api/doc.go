// Package api contains the HTTP handlers, request/response models and
// error mapping for the service's REST surface.
package api
