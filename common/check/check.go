package check

import "fmt"

// PanicIfErr panics on a non-nil error. Use it for must-not-happen paths
// where propagating the error would only obscure a programming bug.
func PanicIfErr(err error) {
	if err != nil {
		panic(err)
	}
}

// PanicIfNot panics if the flag is false.
func PanicIfNot(flag bool) {
	if !flag {
		panic("requirement not met")
	}
}

// PanicIfNotf panics with a formatted message if the flag is false.
func PanicIfNotf(flag bool, format string, args ...any) {
	if !flag {
		panic(fmt.Sprintf(format, args...))
	}
}
