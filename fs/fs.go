// Package appfs embeds the files shipped inside the binaries.
package appfs

import "embed"

//go:embed migrations/*.sql templates/*.gohtml
var FS embed.FS
