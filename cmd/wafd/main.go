// Package main is the entry point for the WAF console daemon.
package main

func main() {
	Execute()
}
