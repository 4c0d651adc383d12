// Package logger is a thin leveled facade over the standard log
// package. Every component logs through it so the prefix format stays
// uniform across dispatch, reconciliation and the scheduler.
package logger

import (
	"log"
)

// Init sets the shared log flags. Called once from main before any
// component logs.
func Init() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
}

func Infof(format string, v ...any) {
	log.Printf("[INFO] "+format, v...)
}

func Warnf(format string, v ...any) {
	log.Printf("[WARN] "+format, v...)
}

func Errorf(format string, v ...any) {
	log.Printf("[ERROR] "+format, v...)
}

func Debugf(format string, v ...any) {
	log.Printf("[DEBUG] "+format, v...)
}

// Fatalf logs and exits. Reserved for unrecoverable startup problems
// (missing secrets, unreachable database).
func Fatalf(format string, v ...any) {
	log.Fatalf("[FATAL] "+format, v...)
}
