package web

import "embed"

// TemplatesFS embeds the tree page template.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS embeds the stylesheet and drag script.
//
//go:embed static/*
var StaticFS embed.FS
