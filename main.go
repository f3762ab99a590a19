package main

import "github.com/caseboard/suspect-search/cmd"

func main() {
	cmd.Execute()
}
