package main

import "github.com/dupeforge/dupeforge/cmd"

func main() {
	cmd.Execute()
}
