package main

import "github.com/marcoraddatz/komodo/cmd/komodo-ctl/cmd"

func main() {
	cmd.Execute()
}
