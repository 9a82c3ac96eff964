// Package main provides the entry point for the proxy harvester CLI.
//
// Usage:
//
//	harvester run --config configs/harvester.ini
//	harvester check 1.2.3.4:8080 socks5://5.6.7.8:1080
//	harvester sources --fetch
package main

func main() {
	Execute()
}
