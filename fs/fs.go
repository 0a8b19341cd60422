// Package appfs embeds static assets shipped with the binary:
// database migrations and email templates.
package appfs

import "embed"

// "all:" keeps the "_"-prefixed base templates, which plain directory
// embedding would skip.
//
//go:embed migrations all:templates
var FS embed.FS
