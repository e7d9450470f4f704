// Copyright 2026 firmfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package main

import (
	"fmt"
	"net/http"

	"github.com/firmfuzz/firmfuzz/pkg/log"
	"github.com/firmfuzz/firmfuzz/pkg/stat"
	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (fz *Fuzzer) initHTTP() {
	if fz.cfg.HTTP == "" {
		return
	}
	mux := newMux(fz.instance)
	log.Logf(0, "serving http on http://%v", fz.cfg.HTTP)
	go func() {
		err := http.ListenAndServe(fz.cfg.HTTP, mux)
		if err != nil {
			log.Fatalf("failed to listen on %v: %v", fz.cfg.HTTP, err)
		}
	}()
}

func newMux(instance string) *http.ServeMux {
	mux := http.NewServeMux()
	handle := func(pattern string, handler http.Handler) {
		mux.Handle(pattern, handlers.CompressHandler(handler))
	}
	handle("/metrics", promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{}))
	handle("/stats", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintf(w, "instance %v\n", instance)
		for _, v := range stat.Collect(stat.All) {
			fmt.Fprintf(w, "%v: %v\n", v.Name, v.Value)
		}
	}))
	return mux
}
