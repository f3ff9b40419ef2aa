// Package assets contains the embedded dashboard and login pages.
package assets

import "embed"

//go:embed web/*
var WebFiles embed.FS
