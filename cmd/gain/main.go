// Command gain imputes missing values in CSV datasets with a Generative
// Adversarial Imputation Network.
//
//	gain impute --data-name letter --iterations 10000
//	gain impute --data-name letter --predict
//	gain checkpoint inspect --data-name letter
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
