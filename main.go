package main

import "github.com/AMF-FLX/AMF-BASE-QAQC-sub001/cmd"

func main() {
	cmd.Execute()
}
