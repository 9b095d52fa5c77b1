// Package dashboard provides the embedded web UI for netbadge.
//
// The page holds the network-badge element and mirrors the server-rendered
// badge over Server-Sent Events. Embedding keeps the binary self-contained.
package dashboard

import "embed"

// Assets is an embedded filesystem containing the dashboard web UI.
//
//	assets/
//	  index.html    - Badge page with inline CSS and JavaScript
//
//go:embed assets/*
var Assets embed.FS
