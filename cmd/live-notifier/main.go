// Package main はLive Notifierのエントリーポイントを提供する。
package main

import (
	"os"

	"github.com/yuu1111/LiveNotifier/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
