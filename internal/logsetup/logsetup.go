// Package logsetup configures the standard logger for all cusbc
// commands. Import it for its side effects:
//
//	import _ "github.com/shanedertrain/cusbc/internal/logsetup"
package logsetup

import (
	"log"
	"os"
)

func init() {
	log.SetFlags(log.LstdFlags | log.Lmsgprefix)
	if os.Getenv("CUSBC_DEBUG") != "" {
		log.SetFlags(log.LstdFlags | log.Lmsgprefix | log.Lshortfile)
	}
}
