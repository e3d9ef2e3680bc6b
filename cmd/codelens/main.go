package main

// main runs the codelens command line. Build metadata is injected into the
// variables declared in root.go through -ldflags.
func main() {
	Execute()
}
