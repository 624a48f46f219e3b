package main

import (
	cmd "github.com/fabdesk/backup-exporter/cmd/main"
)

func main() {
	cmd.Run()
}
