// Command airq renders air-quality dashboard views offline. It loads PRSA
// CSV files, applies a selection, and prints the view as JSON or exports its
// tables to an xlsx workbook.
//
// Usage:
//
//	go run ./cmd/airq render --data data/mock --pollutant PM10 --from 2014 --to 2016
//	go run ./cmd/airq export --data data/mock --station Dongsi --out report.xlsx
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
