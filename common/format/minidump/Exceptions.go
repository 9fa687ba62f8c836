package minidump

var exceptionNames = map[uint32]string{
	0x80000002: "EXCEPTION_DATATYPE_MISALIGNMENT",
	0x80000003: "EXCEPTION_BREAKPOINT",
	0x80000004: "EXCEPTION_SINGLE_STEP",
	0xC0000005: "EXCEPTION_ACCESS_VIOLATION",
	0xC0000006: "EXCEPTION_IN_PAGE_ERROR",
	0xC000001D: "EXCEPTION_ILLEGAL_INSTRUCTION",
	0xC0000025: "EXCEPTION_NONCONTINUABLE_EXCEPTION",
	0xC000008C: "EXCEPTION_ARRAY_BOUNDS_EXCEEDED",
	0xC000008E: "EXCEPTION_FLT_DIVIDE_BY_ZERO",
	0xC0000094: "EXCEPTION_INT_DIVIDE_BY_ZERO",
	0xC0000095: "EXCEPTION_INT_OVERFLOW",
	0xC0000096: "EXCEPTION_PRIV_INSTRUCTION",
	0xC00000FD: "EXCEPTION_STACK_OVERFLOW",
	0xC0000374: "STATUS_HEAP_CORRUPTION",
	0xC0000409: "STATUS_STACK_BUFFER_OVERRUN",
	0xE06D7363: "CPP_EXCEPTION",
}

// ExceptionName returns the symbolic name of a Windows exception code.
func ExceptionName(code uint32) string {
	if name, ok := exceptionNames[code]; ok {
		return name
	}
	return "UNKNOWN_EXCEPTION"
}
