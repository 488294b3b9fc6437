package main

import "github.com/anditama/inventory-management/cmd"

func main() {
	cmd.Execute()
}
