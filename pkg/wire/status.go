package wire

import "fmt"

// Exit statuses reserved by the native runtime.
const (
	ExitCallback    = 119 // a callback selector or result could not be handled
	ExitDeserialize = 120 // the input stream held an unknown tag
	ExitDispatch    = 128 // a dispatcher met a type tag it has no case for
)

var reasons = map[int]string{
	ExitCallback:    "callback failure",
	ExitDeserialize: "deserialization failure",
	ExitDispatch:    "dispatch on an unrecognized type tag",
	133:             "SIGTRAP - divide by zero?",
	138:             "SIGBUS?",
	139:             "SIGSEGV?",
}

// Reason returns the known cause of a native exit status, or "".
func Reason(code int) string {
	return reasons[code]
}

// Diagnose renders a native exit status for users.
func Diagnose(code int) string {
	if r := Reason(code); r != "" {
		return fmt.Sprintf("the task exited with %d (%s)", code, r)
	}
	return fmt.Sprintf("the task exited with %d", code)
}
