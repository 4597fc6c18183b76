package reelscribe

import "embed"

// WebFiles holds the browser UI: page templates and static assets.
//
//go:embed web
var WebFiles embed.FS
