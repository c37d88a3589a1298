// Public domain.

package main

import "github.com/curtisa1/icqsplitter/internal/icqprog"

func main() {
	icqprog.Main()
}
