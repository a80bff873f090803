// Package nlog is setab's leveled logger: call sites look like
// Infoln/Warningln/Errorln/Debugln over a standard library writer
// rather than a third-party logging framework.
package nlog

import (
	"log"
	"os"
	"sync/atomic"
)

// level gates Debugln call sites: a verbosity knob where 0 is silent
// and higher numbers print more.
var level int32

func SetLevel(n int) { atomic.StoreInt32(&level, int32(n)) }

func V(n int) bool { return atomic.LoadInt32(&level) >= int32(n) }

var std = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lmicroseconds)

func Infoln(v ...any)    { std.Println(append([]any{"I "}, v...)...) }
func Warningln(v ...any) { std.Println(append([]any{"W "}, v...)...) }
func Errorln(v ...any)   { std.Println(append([]any{"E "}, v...)...) }

// Debugln only prints when the verbosity level is at least n.
func Debugln(n int, v ...any) {
	if V(n) {
		std.Println(append([]any{"D "}, v...)...)
	}
}
