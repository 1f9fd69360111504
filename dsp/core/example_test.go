package core_test

import (
	"fmt"

	"github.com/cwbudde/algo-axis/dsp/core"
)

func ExampleMIDIToHz() {
	fmt.Printf("%.2f %.2f\n", core.MIDIToHz(69), core.MIDIToHz(57))

	// Output:
	// 440.00 220.00
}

func ExampleNextPowerOfTwo() {
	fmt.Println(core.NextPowerOfTwo(1764))

	// Output:
	// 2048
}
