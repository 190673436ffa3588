// Package web bundles the dashboard templates and static assets into the
// binary so the server ships as a single artifact.
package web

import "embed"

// TemplatesFS holds the HTMX dashboard templates (index, overview, trend).
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and any other static files.
//
//go:embed static/*
var StaticFS embed.FS
