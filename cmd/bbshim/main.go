// Command bbshim stands in for a compiler. Install it with
// "benchbuild install", which links it under the compiler's name next to
// its manifest.
package main

import (
	"context"
	"os"

	"github.com/boehmseb/benchbuild/internal/shim"
)

func main() {
	os.Exit(shim.Main(context.Background(), os.Args))
}
