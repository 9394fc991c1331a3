package main

import (
	sstv "github.com/doismellburning/samoyed-sstv/src"
)

func main() {
	sstv.SSTV2WavMain()
}
