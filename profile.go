package main

import (
	"log"
	"os"
	"runtime"
	"runtime/pprof"
)

// profile starts a cpu profile if cpupath is set, and returns a function that
// stops it and writes a heap profile if mempath is set.
func profile(cpupath, mempath string) func() {
	var cpuf *os.File
	if cpupath != "" {
		f, err := os.Create(cpupath)
		xcheckf(err, "creating cpu profile")
		err = pprof.StartCPUProfile(f)
		xcheckf(err, "starting cpu profile")
		cpuf = f
	}
	return func() {
		if cpuf != nil {
			pprof.StopCPUProfile()
			if err := cpuf.Close(); err != nil {
				log.Printf("closing cpu profile: %v", err)
			}
		}
		if mempath == "" {
			return
		}
		f, err := os.Create(mempath)
		xcheckf(err, "creating memory profile")
		defer f.Close()
		runtime.GC() // For up-to-date statistics.
		err = pprof.WriteHeapProfile(f)
		xcheckf(err, "writing memory profile")
	}
}
