package main

import "github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/cli"

func main() {
	cli.Execute()
}
