// Package main implements the push-guard CLI.
package main

func main() {
	Execute()
}
