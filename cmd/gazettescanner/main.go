package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"GazetteScanner/internal/cli"
	"GazetteScanner/internal/domain"
)

func main() {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if errors.Is(err, domain.ErrConfiguration) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
