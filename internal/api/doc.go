// Package api implements the HTTP surface of the storybook service:
// project CRUD, multipart photo uploads feeding the background queue, and
// the generation pipeline's start, stop, skip and retry controls along
// with page and progress reads. Handlers translate internal errors into
// sanitized responses; raw error text never reaches clients.
package api
