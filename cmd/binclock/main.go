// Command binclock runs the binary clock appliance: a DS3231-backed
// clock with a three-button settings UI, reported over MQTT and HTTP.
package main

import "github.com/Chris-70/WiFiBinaryClock-sub000/internal/cli"

func main() {
	cli.Execute()
}
