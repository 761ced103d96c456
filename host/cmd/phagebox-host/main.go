// Command phagebox-host drives a PhageBox thermal cycler over its serial
// link.
package main

func main() {
	Execute()
}
