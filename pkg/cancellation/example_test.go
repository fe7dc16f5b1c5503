package cancellation_test

import (
	"fmt"

	"github.com/pboueke/pipa/pkg/cancellation"
)

func Example() {
	c := cancellation.New()
	c.DeclareRequiredStopper()
	c.DeclareRequiredStopper()

	c.RequestStop(false)
	fmt.Println(c.IsCancelled())

	c.RequestStop(false)
	fmt.Println(c.IsCancelled())
	// Output:
	// false
	// true
}

func ExampleCoordinator_RequestStop_force() {
	c := cancellation.New()
	c.RequestStop(true)
	fmt.Println(c.IsCancelled(), c.Forced())
	// Output: true true
}
