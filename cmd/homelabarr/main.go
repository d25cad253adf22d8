package main

import "github.com/smashingtags/homelabarr-containers/internal/cli"

func main() {
	cli.Execute()
}
