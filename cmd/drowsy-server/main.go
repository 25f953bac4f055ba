package main

import "github.com/Madhesh13-byte/drowsy-detection-iot/cmd/drowsy-server/cmd"

func main() {
	cmd.Execute()
}
