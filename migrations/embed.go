// AngelaMos | 2026
// embed.go

package migrations

import "embed"

//go:embed *.up.sql
var FS embed.FS
