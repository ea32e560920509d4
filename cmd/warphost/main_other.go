//go:build !windows

package main

import "log"

func main() {
	log.Fatal("warphost targets Windows processes; build with GOOS=windows -buildmode=c-shared")
}
