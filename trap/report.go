package trap

import "github.com/ziyangfu/ostemp-sub000/klog"

// Reporter sees the final status of every gateway call before the
// application does and returns the status the application gets.
type Reporter interface {
	Report(tag Tag, st Status, args ...Word) Status
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(tag Tag, st Status, args ...Word) Status

func (f ReporterFunc) Report(tag Tag, st Status, args ...Word) Status {
	return f(tag, st, args...)
}

// LogReporter logs failed calls and hands them to Hook, the error hook,
// when one is set. The status is passed through unchanged.
type LogReporter struct {
	Hook func(tag Tag, st Status, args []Word)
}

func (r LogReporter) Report(tag Tag, st Status, args ...Word) Status {
	if st == StatusOK {
		return st
	}
	klog.Debugf("%s%v = %s", tag, args, st)
	if r.Hook != nil {
		r.Hook(tag, st, args)
	}
	return st
}
