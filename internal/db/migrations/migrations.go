package migrations

import "embed"

// Migrations contiene los archivos SQL embebidos.
//
//go:embed *.sql
var Migrations embed.FS
