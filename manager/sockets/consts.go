package sockets

type optionKey struct {
	level Level
	opt   OptName
}

type nativeOption struct {
	level int
	name  int
	// boolean options read back as 0 or 1 whatever the OS stores.
	boolean bool
}

func lookupOption(op string, level Level, opt OptName) (nativeOption, error) {
	n, ok := nativeOptions[optionKey{level, opt}]
	if !ok {
		return nativeOption{}, argError(op, KindOption, ReasonUnsupported, level.String()+"/"+opt.String())
	}
	return n, nil
}
