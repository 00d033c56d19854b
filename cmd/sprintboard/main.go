package main

import (
	"fmt"
	"os"
)

func main() {
	Execute()
}

func fatal(msg string, err error) {
	printFailure(msg, err)
	os.Exit(1)
}

func fatalf(format string, args ...any) {
	printError("%s", fmt.Sprintf(format, args...))
	os.Exit(1)
}
