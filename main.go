package main

import "github.com/zync/zync-maya/cmd"

func main() {
	cmd.Execute()
}
