package mqtt

import (
	"fmt"

	"github.com/go-logr/logr"
)

// pahoLogger adapts logr to the Println/Printf logger paho expects.
type pahoLogger struct {
	l logr.Logger
}

func (p pahoLogger) Println(v ...interface{}) {
	p.l.V(1).Info(fmt.Sprint(v...))
}

func (p pahoLogger) Printf(format string, v ...interface{}) {
	p.l.V(1).Info(fmt.Sprintf(format, v...))
}
