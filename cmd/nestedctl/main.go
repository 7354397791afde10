// Command nestedctl builds, queries and reorganizes nested interval trees kept
// in a SQLite table.
package main

import (
	"os"

	"k8s.io/klog/v2"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		klog.ErrorS(err, "nestedctl failed")
		klog.Flush()
		os.Exit(1)
	}
	klog.Flush()
}
