// sheetmerge 把多个周期报表按键列依次左连接进主表，每个报表生成一列编码后的标记。
package main

import (
	"fmt"
	"os"
)

var (
	version   = "0.1.0"
	buildDate = "dev"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
