package main

import (
	"github.com/ak-softwares/wa-api-sub000/cmd"
)

func main() {
	cmd.Execute()
}
