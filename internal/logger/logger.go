package logger

import (
	"fmt"
	"log"
	"os"
	"strings"
)

var (
	InfoLogger  *log.Logger
	ErrorLogger *log.Logger
	DebugLogger *log.Logger
)

func Init() {
	InfoLogger = log.New(os.Stdout, "INFO: ", log.Ldate|log.Ltime|log.Lshortfile)
	ErrorLogger = log.New(os.Stderr, "ERROR: ", log.Ldate|log.Ltime|log.Lshortfile)
	DebugLogger = log.New(os.Stdout, "DEBUG: ", log.Ldate|log.Ltime|log.Lshortfile)
}

// fields renders an even list of key/value pairs as "k=v k=v ...".
func fields(kv []interface{}) string {
	if len(kv) == 0 {
		return ""
	}
	var b strings.Builder
	for i := 0; i < len(kv)-1; i += 2 {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%v=%v", kv[i], kv[i+1])
	}
	if len(kv)%2 == 1 {
		if len(kv) > 1 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%v=?", kv[len(kv)-1])
	}
	return b.String()
}

func Info(msg string, kv ...interface{}) {
	if f := fields(kv); f != "" {
		InfoLogger.Println(msg, f)
		return
	}
	InfoLogger.Println(msg)
}

func Infof(format string, v ...interface{}) {
	InfoLogger.Printf(format, v...)
}

func Error(msg string, kv ...interface{}) {
	if f := fields(kv); f != "" {
		ErrorLogger.Println(msg, f)
		return
	}
	ErrorLogger.Println(msg)
}

func Errorf(format string, v ...interface{}) {
	ErrorLogger.Printf(format, v...)
}

func Debug(msg string, kv ...interface{}) {
	if f := fields(kv); f != "" {
		DebugLogger.Println(msg, f)
		return
	}
	DebugLogger.Println(msg)
}

func Debugf(format string, v ...interface{}) {
	DebugLogger.Printf(format, v...)
}

func Fatal(msg string, kv ...interface{}) {
	if f := fields(kv); f != "" {
		ErrorLogger.Fatalln(msg, f)
		return
	}
	ErrorLogger.Fatalln(msg)
}

func Fatalf(format string, v ...interface{}) {
	ErrorLogger.Fatalf(format, v...)
}
