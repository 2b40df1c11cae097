// Package web holds the page templates and static files compiled into the binary.
package web

import "embed"

// TemplatesFS embeds the page and the ledger partial.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS embeds stylesheets and scripts served under /static/.
//
//go:embed static/*
var StaticFS embed.FS
