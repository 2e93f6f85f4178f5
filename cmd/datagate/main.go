// Package main is the entry point for datagate, a declarative
// data-access gateway: resources and their remote call operations are
// described in configuration, and the engine handles parameter
// assembly, credentials, retries and output shaping.
package main

func main() {
	Execute()
}
